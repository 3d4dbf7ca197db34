package main

import (
	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Exposes the stored graphs as Model Context Protocol tools over
stdin/stdout: list_graphs names them and run_graph runs one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		return mcp.NewServer(rt.Engine, flowgraph.Version, mcp.WithLogger(rt.Logger)).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
