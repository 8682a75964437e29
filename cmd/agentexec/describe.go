package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newDescribeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the tool definition as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			tool, err := cfg.NewTool(logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tool.Definition())
		},
	}
}
