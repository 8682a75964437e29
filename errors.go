package agentexec

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the agentexec package.
var (
	// ErrConfigInvalid indicates the provided configuration failed validation.
	ErrConfigInvalid = errors.New("agentexec: invalid configuration")

	// ErrCommandBlocked indicates the command was rejected by the guard.
	ErrCommandBlocked = errors.New("agentexec: command blocked by safety guard")

	// ErrCommandTimeout indicates the command exceeded the configured timeout
	// and was terminated.
	ErrCommandTimeout = errors.New("agentexec: command timed out")

	// ErrEmptyCommand indicates an empty or whitespace-only command was submitted.
	ErrEmptyCommand = errors.New("agentexec: command is required")
)

// BlockedCommandError is returned when a command is rejected by the guard.
// It wraps ErrCommandBlocked so that errors.Is(err, ErrCommandBlocked) still works.
type BlockedCommandError struct {
	// Command is the command string that was blocked.
	Command string
	// Reason is the guard rule family that blocked the command.
	Reason BlockReason
	// Pattern is the deny pattern that matched, for DangerousPattern blocks.
	Pattern string
	// Path is the offending path, for PathOutsideWorkspace blocks.
	Path string
}

func (e *BlockedCommandError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCommandBlocked.Error(), e.Reason.Message())
}

func (e *BlockedCommandError) Unwrap() error {
	return ErrCommandBlocked
}

// TimeoutError is returned by Tool.Run when the command was terminated after
// exceeding the configured timeout.
type TimeoutError struct {
	// Command is the command string that timed out.
	Command string
	// Timeout is the configured limit that was exceeded.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %v", ErrCommandTimeout.Error(), e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrCommandTimeout
}
