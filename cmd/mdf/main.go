// Command mdf runs the offline steps of the MDF casualty dashboard:
// consolidating the raw annotation exports, geocoding places of death, and
// validating the consolidated file.
//
// Usage:
//
//	mdf consolidate --input 'data/raw/*.csv' --output data/processed/mdf_df.csv
//	mdf geocode --dry-run
//	mdf validate --boundaries data/departements.geojson
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/mdf-dashboard/internal/config"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(cfg, observability.NewMetrics())
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("mdf failed", "command", commandName(root, os.Args[1:]), "error", err)
		stop()
		os.Exit(1)
	}
}
