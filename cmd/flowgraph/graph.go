package main

import (
	"fmt"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <file|name>",
	Short: "Export the graph as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart of the graph. With --trace the graph is run
from the given node first and the nodes the walk entered are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trace, _ := cmd.Flags().GetString("trace")

		tracer := cli.NewTracer()
		rt, err := setup(cmd, flowgraph.WithLifecycleHooks(tracer.Hooks()))
		if err != nil {
			return err
		}
		defer rt.Close()

		chart, err := cli.Diagram(cmd.Context(), rt, args[0], trace, tracer)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), chart)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("trace", "", "Run from this node and highlight the walk")
}
