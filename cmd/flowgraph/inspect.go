package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file|name>",
	Short: "Describe the nodes, ports and values of a graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		md, err := cli.Inspect(cmd.Context(), rt, args[0])
		if err != nil {
			return err
		}
		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout())
		}
		rendered, err := tui.NewRenderer(os.Stdout)(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
