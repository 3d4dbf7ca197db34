package main

import (
	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|name>",
	Short: "Run a graph from an entry node",
	Long: `Loads a graph file, or a stored graph by name, and walks it from the
entry node until the walk and every walk it spawned are done.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		values, _ := cmd.Flags().GetString("values")
		save, _ := cmd.Flags().GetBool("save")
		quiet, _ := cmd.Flags().GetBool("quiet")

		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sm := runner.NewSignalManager(cmd.Context())
		defer sm.Stop()

		return cli.Execute(sm.Context(), rt, cli.RunOptions{
			Target: args[0],
			Start:  start,
			Values: values,
			Save:   save,
			Quiet:  quiet,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("start", "s", "Start", "Entry node id")
	runCmd.Flags().String("values", "", "Initial shared values as a JSON object")
	runCmd.Flags().Bool("save", false, "Store the graph and its values after the run")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the final values")
}
