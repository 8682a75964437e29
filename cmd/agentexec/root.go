package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhangyunhao116/agentexec/internal/config"
)

// errBlocked is returned by commands that report a guard block through the
// exit status. main does not print it.
var errBlocked = errors.New("command blocked")

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "agentexec",
		Short: "Guarded shell command execution for agents",
		Long: `agentexec runs shell commands on behalf of an AI agent.

Every command is checked against a deny-list of dangerous patterns, an
optional allow-list and, optionally, confinement to a working directory
before it is run with a timeout. Results are rendered as plain text.

Commands:
  exec      Run a command and print the rendered result
  check     Evaluate a command against the guard without running it
  describe  Print the tool definition as JSON
  serve     Serve the tool over HTTP
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (YAML)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newExecCmd(opts),
		newCheckCmd(opts),
		newDescribeCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration file and applies the logging flags.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configFile, nil)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newLogger builds the slog logger described by lc, writing to w.
func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	hopts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (valid: text, json)", lc.Format)
	}
}
