package main

import (
	"fmt"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|name>",
	Short: "Check the graph for consistency",
	Long: `Reports unknown commands, edges to missing nodes or ports, incompatible
edges, and nodes no entry point can reach.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := cli.Validate(cmd.Context(), rt, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, issue := range report.Issues {
			fmt.Fprintln(out, issue)
		}
		if err := report.Err(); err != nil {
			return fmt.Errorf("validation failed: %d error(s)", len(report.Errors()))
		}
		fmt.Fprintln(out, "Graph is valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
