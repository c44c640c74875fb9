package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jrecord-demo",
		Short: "Exercise jrecord lifecycle callbacks",
		Long: `jrecord-demo defines a Track class with save, create, update and destroy
callbacks, then creates, reloads, updates and destroys one record, printing
the callbacks that ran and the resulting fields.`,
		SilenceUsage: true,
		RunE:         runScenarioCmd,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("store", "memory", "store backend (memory, sqlite3, mysql, postgres, redis)")
	flags.String("dsn", "", "DSN for sqlite3, mysql and postgres (sqlite3 defaults to :memory:)")
	flags.String("redis", "localhost:6379", "Redis address for the redis store and cache")
	flags.String("cache", "", "find cache (memory, redis)")
	flags.Duration("slow", 0, "log store operations slower than this (0 disables)")
	flags.BoolP("verbose", "v", false, "log store statements and callback traces")
	flags.Bool("json", false, "log in JSON format")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the Track lifecycle once",
		RunE:  runScenarioCmd,
	})
	root.AddCommand(newServeCmd())
	return root
}

// resolveConfig loads --config and applies the flags the user set explicitly.
func resolveConfig(cmd *cobra.Command) (config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return cfg, err
	}

	if flags.Changed("store") {
		cfg.Store, _ = flags.GetString("store")
	}
	if flags.Changed("dsn") {
		cfg.DSN, _ = flags.GetString("dsn")
	}
	if flags.Changed("redis") {
		cfg.Redis.Addr, _ = flags.GetString("redis")
	}
	if flags.Changed("cache") {
		cfg.Cache.Kind, _ = flags.GetString("cache")
	}
	if flags.Changed("slow") {
		cfg.Slow, _ = flags.GetDuration("slow")
	}
	if v, _ := flags.GetBool("verbose"); v {
		cfg.Log.Level = "debug"
	}
	if j, _ := flags.GetBool("json"); j {
		cfg.Log.Format = "json"
	}
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	return cfg, nil
}

func runScenarioCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.engine.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return runScenario(ctx, a.engine, a.track1, a.journal, cmd.OutOrStdout())
}
