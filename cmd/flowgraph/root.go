package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/cli"
	"github.com/aretw0/flowgraph/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowgraph",
	Short: "Flowgraph runs visual-scripting node graphs",
	Long: `Flowgraph loads graphs of typed nodes wired through control and data ports,
runs them from any entry node, and keeps named graphs in a file or Redis store.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "Configuration file (YAML or JSON)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("store", "", "Graph store backend: memory, file or redis")
	flags.String("dir", "", "Directory of the file store")
	flags.String("redis-addr", "", "Address of the redis store")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path, flags.Changed("config"))
	if err != nil {
		return cfg, err
	}

	override := func(name string, dst *string) {
		if v, _ := flags.GetString(name); v != "" {
			*dst = v
		}
	}
	override("log-level", &cfg.Log.Level)
	override("log-format", &cfg.Log.Format)
	override("store", &cfg.Store.Backend)
	override("dir", &cfg.Store.Dir)
	override("redis-addr", &cfg.Store.Redis.Addr)
	return cfg, cfg.Validate()
}

// setup builds the runtime for a command.
func setup(cmd *cobra.Command, extra ...flowgraph.Option) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Setup(cfg, extra...)
}
