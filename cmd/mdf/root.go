package main

import (
	"log/slog"

	"github.com/couchcryptid/mdf-dashboard/internal/config"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	"github.com/spf13/cobra"
)

// app carries what every subcommand shares.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// newRootCommand builds the command tree. Flag defaults come from cfg, so
// environment variables and .env files set them.
func newRootCommand(cfg *config.Config, metrics *observability.Metrics) *cobra.Command {
	a := &app{cfg: cfg, metrics: metrics}

	root := &cobra.Command{
		Use:   "mdf",
		Short: "Offline tools for the MDF casualty dashboard",
		Long: `mdf prepares the files the dashboard reads.

consolidate merges the raw "Mort pour la France" annotation exports into one
deduplicated table with unified dates and ages at death. geocode fills in the
coordinates of places of death, and validate checks a consolidated file.`,
		PersistentPreRun: func(*cobra.Command, []string) {
			a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(a.logger)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json or text")

	root.AddCommand(
		a.newConsolidateCommand(),
		a.newGeocodeCommand(),
		a.newValidateCommand(),
	)
	return root
}

// commandName returns the subcommand args select, for logging.
func commandName(root *cobra.Command, args []string) string {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == nil {
		return root.Name()
	}
	return cmd.Name()
}
