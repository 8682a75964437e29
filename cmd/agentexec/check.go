package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhangyunhao116/agentexec"
)

func newCheckCmd(g *globalOptions) *cobra.Command {
	var workingDir string

	cmd := &cobra.Command{
		Use:   "check [flags] <command>",
		Short: "Evaluate a command against the guard without running it",
		Long: `Print "allow" or "block: <reason>" for a command. The exit status is 1
when the command would be blocked. The command is a single argument.`,
		Example: `  agentexec check 'rm -rf /tmp/x'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			tool, err := cfg.NewTool(logger)
			if err != nil {
				return err
			}

			d := tool.Check(args[0], agentexec.WithWorkingDir(workingDir))
			if d.Allowed() {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "allow")
				return err
			}
			line := "block: " + d.Reason.String()
			if d.Pattern != "" {
				line += " (" + d.Pattern + ")"
			}
			if d.Path != "" {
				line += " (" + d.Path + ")"
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
				return err
			}
			return errBlocked
		},
	}
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "Working directory to evaluate against")
	return cmd
}
