package agentexec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// drainTimeout bounds how long a terminated process is waited for before the
// runner gives up and reports a timeout anyway.
const drainTimeout = 5 * time.Second

// RunState is a state of the per-execution process state machine:
//
//	running -> completed
//	running -> timed_out -> terminating -> drained | drain_timed_out
//
// A cancelled context follows the same termination path as a timeout.
type RunState int

const (
	// StateRunning means the process has been started and has not finished.
	StateRunning RunState = iota

	// StateCompleted means the process exited on its own.
	StateCompleted

	// StateTimedOut means the deadline or context fired while running.
	StateTimedOut

	// StateTerminating means the process group has been sent SIGKILL.
	StateTerminating

	// StateDrained means the killed process was reaped within drainTimeout.
	StateDrained

	// StateDrainTimedOut means the killed process was not reaped in time.
	StateDrainTimedOut
)

// String returns the string representation of a RunState.
func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateTerminating:
		return "terminating"
	case StateDrained:
		return "drained"
	case StateDrainTimedOut:
		return "drain_timed_out"
	default:
		return unknownStr
	}
}

// Outcome holds the raw result of running one command.
type Outcome struct {
	// Stdout and Stderr hold the captured bytes. They are only populated
	// when State is StateCompleted.
	Stdout []byte
	Stderr []byte

	// ExitCode is the process exit status. A process killed by a signal
	// reports the negated signal number. Valid only when HasExitCode is true.
	ExitCode    int
	HasExitCode bool

	// TimedOut is true when the command exceeded its timeout.
	TimedOut bool

	// Cancelled is true when the caller's context ended before the command did.
	Cancelled bool

	// State is the terminal state of the run.
	State RunState

	// Duration is the wall-clock time from start to the terminal state.
	Duration time.Duration
}

// runRequest describes a single process to run.
type runRequest struct {
	shell   string
	command string
	dir     string
	env     []string
	timeout time.Duration
}

// startProcess starts cmd. It is a variable so that tests can observe or
// prevent process creation.
var startProcess = func(cmd *exec.Cmd) error {
	return cmd.Start()
}

// runCommand spawns "<shell> -c <command>" and waits for it to complete,
// time out, or be cancelled through ctx. A non-nil error means the process
// could not be started or waited on; timeouts and cancellations are reported
// through the Outcome.
func runCommand(ctx context.Context, req runRequest, logger *slog.Logger) (*Outcome, error) {
	cmd := exec.Command(req.shell, "-c", req.command)
	cmd.Dir = req.dir
	cmd.Env = req.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	setupProcessGroup(cmd)

	// A request whose context has already ended never reaches the shell.
	if ctx.Err() != nil {
		return &Outcome{Cancelled: true, State: StateDrained}, nil
	}

	start := time.Now()
	if err := startProcess(cmd); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(req.timeout)
	defer timer.Stop()

	out := &Outcome{State: StateRunning}
	select {
	case err := <-done:
		out.State = StateCompleted
		out.Duration = time.Since(start)
		out.Stdout = stdout.Bytes()
		out.Stderr = stderr.Bytes()
		if cmd.ProcessState != nil {
			out.ExitCode = exitCodeOf(cmd.ProcessState)
			out.HasExitCode = true
		}
		if errors.Is(err, exec.ErrWaitDelay) {
			// The shell exited but a background child still held its output
			// pipes. Wait has closed them, so the buffers are complete.
			logger.Debug("command left background processes running", "pid", cmd.Process.Pid)
			return out, nil
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return out, err
		}
		return out, nil

	case <-timer.C:
		out.TimedOut = true

	case <-ctx.Done():
		out.Cancelled = true
	}

	out.State = StateTimedOut
	terminate(cmd, out, done, logger)
	out.Duration = time.Since(start)
	return out, nil
}

// terminate kills the process group of cmd and waits at most drainTimeout
// for the Wait goroutine to report. Output is discarded: the copy goroutines
// may still be writing if the drain times out.
func terminate(cmd *exec.Cmd, out *Outcome, done <-chan error, logger *slog.Logger) {
	out.State = StateTerminating
	if err := killProcessGroup(cmd); err != nil {
		logger.Warn("failed to kill process group", "error", err)
	}

	drain := time.NewTimer(drainTimeout)
	defer drain.Stop()

	select {
	case <-done:
		out.State = StateDrained
	case <-drain.C:
		out.State = StateDrainTimedOut
		logger.Warn("process did not exit after kill", "drain_timeout", drainTimeout)
	}
}
