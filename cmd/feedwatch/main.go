// Command feedwatch aggregates syndication feeds into one newest-first list,
// served over HTTP or printed to the terminal.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pevans/feedwatch/config"
	"github.com/pevans/feedwatch/logger"
)

// version is set at build time via ldflags
var version = "dev"

// app carries global flags and the state built from them before any
// subcommand runs.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "feedwatch",
		Short: "Feed aggregation server and CLI",
		Long: `feedwatch merges many RSS, Atom and JSON feeds into one list ordered
newest first, optionally narrowed to subscriptions carrying given tags.

Example usage:
  feedwatch serve                      # Serve the HTML page and JSON API
  feedwatch fetch --tag go             # Print items from subscriptions tagged go
  feedwatch subscriptions import a.yml # Load subscriptions into the store`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.feedwatch/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newServeCmd(a),
		newFetchCmd(a),
		newSubscriptionsCmd(a),
	)

	return root
}

// setup loads configuration and sets up logging.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.cfgFile
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	l, err := logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	a.cfg = cfg
	a.logger = l

	l.Debug("configuration loaded",
		"config", path,
		"cache_backend", cfg.Cache.Backend,
		"subscriptions_file", cfg.Subscriptions.File,
		"subscriptions_dsn", cfg.Subscriptions.DSN,
	)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
