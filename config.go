package agentexec

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zhangyunhao116/agentexec/internal/pathutil"
)

const (
	// DefaultTimeoutSeconds is the command timeout used when Config.Timeout is 0.
	DefaultTimeoutSeconds = 60

	// MaxOutputChars is the rendered result limit, in characters.
	MaxOutputChars = 10000
)

// defaultDenyPatterns is the built-in deny set. It is a judgment call, kept
// verbatim; it does not try to cover every destructive command.
var defaultDenyPatterns = []string{
	`\brm\s+-[rf]{1,2}\b`,            // rm -r, rm -rf, rm -fr
	`\bdel\s+/[fq]\b`,                // del /f, del /q
	`\brmdir\s+/s\b`,                 // rmdir /s
	`(?:^|[;&|]\s*)format\b`,         // format as a standalone command
	`\b(mkfs|diskpart)\b`,            // disk operations
	`\bdd\s+if=`,                     // dd
	`>\s*/dev/sd`,                    // write to disk
	`\b(shutdown|reboot|poweroff)\b`, // system power
	`:\(\)\s*\{.*\};\s*:`,            // fork bomb
}

// DefaultDenyPatterns returns a copy of the built-in deny patterns.
func DefaultDenyPatterns() []string {
	return append([]string(nil), defaultDenyPatterns...)
}

// Config holds the complete configuration for a Tool. It is consumed by
// NewTool, which copies it; changing a Config after NewTool has no effect
// on the Tool.
type Config struct {
	// Timeout is the maximum run time of a command, in seconds.
	// 0 means DefaultTimeoutSeconds.
	Timeout int

	// WorkingDir is the default working directory for commands.
	// If empty, the process working directory at call time is used.
	WorkingDir string

	// DenyPatterns are regular expressions searched (unanchored) in the
	// lower-cased command. If empty, DefaultDenyPatterns is used; a non-empty
	// value replaces the defaults entirely.
	DenyPatterns []string

	// AllowPatterns are regular expressions searched in the lower-cased
	// command. If non-empty, only commands matching at least one may run.
	AllowPatterns []string

	// RestrictToWorkspace rejects commands that contain parent-directory
	// traversal or reference absolute paths outside the working directory.
	RestrictToWorkspace bool

	// PathAppend is appended to PATH for spawned commands.
	PathAppend string

	// Shell is the absolute path of the shell used to run commands.
	// If empty, ResolveShell picks one when the Tool is created.
	Shell string

	// Guard is an optional extra guard evaluated after the built-in rules.
	// It must be safe for concurrent use.
	Guard Guard

	// Logger is the structured logger for operational messages.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the built-in deny set and the
// default timeout.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeoutSeconds,
		DenyPatterns: DefaultDenyPatterns(),
	}
}

// WorkspaceConfig returns a Config that confines commands to dir.
func WorkspaceConfig(dir string) *Config {
	cfg := DefaultConfig()
	cfg.WorkingDir = dir
	cfg.RestrictToWorkspace = true
	return cfg
}

// Validate checks the configuration for errors and returns a descriptive error
// if any field is invalid. The returned error wraps ErrConfigInvalid.
func (c *Config) Validate() error {
	var errs []string

	if c.Timeout < 0 {
		errs = append(errs, "Timeout: must be >= 0")
	}

	if c.WorkingDir != "" && pathutil.ContainsNullByte(c.WorkingDir) {
		errs = append(errs, "WorkingDir: must not contain null bytes")
	}

	if c.Shell != "" && !filepath.IsAbs(c.Shell) {
		errs = append(errs, fmt.Sprintf("Shell: %q must be an absolute path", c.Shell))
	}

	if pathutil.ContainsNullByte(c.PathAppend) {
		errs = append(errs, "PathAppend: must not contain null bytes")
	}

	_, errs = compilePatterns("DenyPatterns", c.DenyPatterns, errs)
	_, errs = compilePatterns("AllowPatterns", c.AllowPatterns, errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(errs, "; "))
	}

	return nil
}

// compilePatterns compiles each pattern and appends any compile errors to
// errs, labelled with the field name and index.
func compilePatterns(field string, patterns []string, errs []string) ([]*regexp.Regexp, []string) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s[%d]: %v", field, i, err))
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled, errs
}

// deepCopyConfig returns a copy of cfg with all slice fields deep-copied
// to prevent aliasing. Guard and Logger are shared by reference.
func deepCopyConfig(cfg *Config) Config {
	cfgCopy := *cfg
	cfgCopy.DenyPatterns = append([]string(nil), cfg.DenyPatterns...)
	cfgCopy.AllowPatterns = append([]string(nil), cfg.AllowPatterns...)
	return cfgCopy
}
