package main

import (
	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/pkg/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the stored graphs over HTTP: GET /graphs lists them,
POST /graphs/{name}/runs runs one, GET /events streams lifecycle events and
GET /metrics serves Prometheus metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sm := runner.NewSignalManager(cmd.Context())
		defer sm.Stop()
		return cli.Serve(sm.Context(), rt, addr, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
