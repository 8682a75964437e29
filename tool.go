package agentexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhangyunhao116/agentexec/internal/envutil"
)

const (
	// ToolName is the name the tool is registered under.
	ToolName = "exec"

	// ToolDescription is the description advertised to the model.
	ToolDescription = "Execute a shell command and return its output. Use with caution."
)

// Tool executes shell commands on behalf of an agent after passing them
// through a Guard. A Tool is immutable after NewTool and safe for concurrent
// use; each call owns its own subprocess.
type Tool struct {
	cfg     Config
	shell   string
	timeout time.Duration
	guard   Guard
	logger  *slog.Logger
}

// NewTool validates cfg, compiles its patterns and resolves the shell.
// The Config is copied; later changes to it do not affect the Tool.
func NewTool(cfg *Config) (*Tool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config must not be nil", ErrConfigInvalid)
	}
	base, err := NewGuard(cfg)
	if err != nil {
		return nil, err
	}

	cfgCopy := deepCopyConfig(cfg)
	if cfgCopy.Timeout == 0 {
		cfgCopy.Timeout = DefaultTimeoutSeconds
	}
	if len(cfgCopy.DenyPatterns) == 0 {
		cfgCopy.DenyPatterns = DefaultDenyPatterns()
	}
	if cfgCopy.Shell == "" {
		cfgCopy.Shell = ResolveShell()
	}

	logger := cfgCopy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var guard Guard = base
	if cfgCopy.Guard != nil {
		guard = ChainGuard(base, cfgCopy.Guard)
	}

	return &Tool{
		cfg:     cfgCopy,
		shell:   cfgCopy.Shell,
		timeout: time.Duration(cfgCopy.Timeout) * time.Second,
		guard:   guard,
		logger:  logger,
	}, nil
}

// Name returns the tool name, "exec".
func (t *Tool) Name() string { return ToolName }

// Description returns the tool description advertised to the model.
func (t *Tool) Description() string { return ToolDescription }

// Shell returns the absolute path of the shell commands run under.
func (t *Tool) Shell() string { return t.shell }

// Config returns a copy of the effective configuration, with defaults filled in.
func (t *Tool) Config() Config { return deepCopyConfig(&t.cfg) }

// Parameters returns the JSON schema of the tool's arguments.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"working_dir": map[string]any{
				"type":        "string",
				"description": "Optional working directory for the command",
			},
		},
		"required": []string{"command"},
	}
}

// Definition is a function-calling tool definition.
type Definition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes the callable function of a Definition.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Definition returns the tool in function-calling form.
func (t *Tool) Definition() Definition {
	return Definition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// Arguments are the decoded arguments of a tool call.
type Arguments struct {
	Command    string `json:"command"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// Check evaluates command against the guard without running it.
func (t *Tool) Check(command string, opts ...Option) GuardDecision {
	co := mergeCallOptions(opts...)
	dir, err := t.workingDir(co)
	if err != nil {
		dir = ""
	}
	return t.guard.Evaluate(command, dir)
}

// Run guards and executes command and returns the raw outcome.
//
// It returns ErrEmptyCommand for a blank command, a *BlockedCommandError if
// the guard rejects it, a *TimeoutError together with the outcome if it ran
// too long, and the context's error together with the outcome if ctx ended
// first. Any other error means the process could not be run. On success the
// command is appended to the shell history when the shell is fish.
func (t *Tool) Run(ctx context.Context, command string, opts ...Option) (*Outcome, error) {
	logger := t.logger.With("invocation", uuid.NewString())
	out, err := t.run(ctx, command, mergeCallOptions(opts...), logger)
	if err == nil {
		recordHistory(t.shell, command, logger)
	}
	return out, err
}

// Execute guards, runs and renders command. It never returns an error: every
// failure is reported in the returned text.
func (t *Tool) Execute(ctx context.Context, command string, opts ...Option) (result string) {
	logger := t.logger.With("invocation", uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			logger.Error("exec panicked", "panic", r)
			result = fmt.Sprintf("Error executing command: %v", r)
		}
	}()

	out, err := t.run(ctx, command, mergeCallOptions(opts...), logger)
	if err != nil {
		return t.errorText(out, err)
	}
	result = Render(out, t.cfg.Timeout)
	recordHistory(t.shell, command, logger)
	return result
}

// ExecuteJSON decodes tool-call arguments and calls Execute.
func (t *Tool) ExecuteJSON(ctx context.Context, raw []byte) string {
	var args Arguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return "Error: invalid arguments: " + err.Error()
	}
	return t.Execute(ctx, args.Command, WithWorkingDir(args.WorkingDir))
}

// errorText renders an error from run as tool output.
func (t *Tool) errorText(out *Outcome, err error) string {
	var blockedErr *BlockedCommandError
	switch {
	case errors.Is(err, ErrEmptyCommand):
		return "Error: command is required"
	case errors.As(err, &blockedErr):
		return blocked(blockedErr.Reason, "").Message()
	case errors.Is(err, ErrCommandTimeout):
		return Render(out, t.cfg.Timeout)
	case out != nil && out.Cancelled:
		return "Error: Command cancelled: " + err.Error()
	default:
		return "Error executing command: " + err.Error()
	}
}

// workingDir returns the effective working directory for a call: the
// per-call option, else the configured directory, else the process cwd.
func (t *Tool) workingDir(co *callOptions) (string, error) {
	if co.workingDir != "" {
		return co.workingDir, nil
	}
	if t.cfg.WorkingDir != "" {
		return t.cfg.WorkingDir, nil
	}
	return os.Getwd()
}

func (t *Tool) run(ctx context.Context, command string, co *callOptions, logger *slog.Logger) (*Outcome, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	dir, err := t.workingDir(co)
	if err != nil {
		return nil, err
	}

	decision := t.guard.Evaluate(command, dir)
	if !decision.Allowed() {
		logger.Debug("command blocked",
			"reason", decision.Reason.String(),
			"rule", decision.Rule,
			"pattern", decision.Pattern,
			"path", decision.Path,
		)
		return nil, &BlockedCommandError{
			Command: command,
			Reason:  decision.Reason,
			Pattern: decision.Pattern,
			Path:    decision.Path,
		}
	}

	out, err := runCommand(ctx, runRequest{
		shell:   t.shell,
		command: command,
		dir:     dir,
		env:     envutil.CommandEnv(t.cfg.PathAppend),
		timeout: t.timeout,
	}, logger)
	if err != nil {
		logger.Debug("command failed", "error", err)
		return out, err
	}

	switch {
	case out.TimedOut:
		logger.Warn("command timed out", "timeout", t.timeout, "state", out.State.String())
		return out, &TimeoutError{Command: command, Timeout: t.timeout}
	case out.Cancelled:
		logger.Debug("command cancelled", "state", out.State.String())
		if cause := context.Cause(ctx); cause != nil {
			return out, cause
		}
		return out, context.Canceled
	}

	logger.Debug("command completed",
		"exit_code", out.ExitCode,
		"duration", out.Duration,
	)
	return out, nil
}
