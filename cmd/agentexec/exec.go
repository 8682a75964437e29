package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type execOptions struct {
	timeout             int
	workingDir          string
	deny                []string
	allow               []string
	restrictToWorkspace bool
	pathAppend          string
}

func newExecCmd(g *globalOptions) *cobra.Command {
	opts := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec [flags] <command>",
		Short: "Run a command and print the rendered result",
		Long: `Run a shell command through the guard and print exactly what an agent
would receive: the output, a block message, or a timeout message.

The command is a single argument passed verbatim to "<shell> -c"; quote it
so the shell, not this program, sees its words and quoting.

Flags override the values from the config file.`,
		Example: `  agentexec exec 'ls -la'
  agentexec exec --working-dir /srv/ws --restrict-to-workspace 'cat notes.txt'
  agentexec exec --allow '^git ' -- 'git log --format="%h %s"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("timeout") {
				cfg.Timeout = opts.timeout
			}
			if flags.Changed("working-dir") {
				cfg.WorkingDir = opts.workingDir
			}
			if flags.Changed("deny") {
				cfg.DenyPatterns = opts.deny
			}
			if flags.Changed("allow") {
				cfg.AllowPatterns = opts.allow
			}
			if flags.Changed("restrict-to-workspace") {
				cfg.RestrictToWorkspace = opts.restrictToWorkspace
			}
			if flags.Changed("path-append") {
				cfg.PathAppend = opts.pathAppend
			}

			tool, err := cfg.NewTool(logger)
			if err != nil {
				return err
			}

			result := tool.Execute(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			if strings.HasSuffix(result, "\n") {
				_, err = fmt.Fprint(out, result)
			} else {
				_, err = fmt.Fprintln(out, result)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.timeout, "timeout", 0, "Timeout in seconds")
	f.StringVar(&opts.workingDir, "working-dir", "", "Working directory for the command")
	f.StringArrayVar(&opts.deny, "deny", nil, "Deny pattern (regexp); replaces the defaults, repeatable")
	f.StringArrayVar(&opts.allow, "allow", nil, "Allow pattern (regexp), repeatable")
	f.BoolVar(&opts.restrictToWorkspace, "restrict-to-workspace", false, "Confine paths to the working directory")
	f.StringVar(&opts.pathAppend, "path-append", "", "Directory appended to PATH")
	return cmd
}
