// Command dashboard serves the MDF casualty views, figures and the same-age
// lookup over HTTP. All data is loaded once at start.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/httpadapter"
	"github.com/couchcryptid/mdf-dashboard/internal/config"
	"github.com/couchcryptid/mdf-dashboard/internal/dashboard"
	"github.com/couchcryptid/mdf-dashboard/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	provider := dashboard.NewProvider(metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, provider, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server; /readyz reports 503 until the bundle is published.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	bundle, err := dashboard.Load(ctx, dashboard.Sources{
		DataPath:      cfg.DataPath,
		GazetteerPath: cfg.GazetteerPath,
		BoundariesURL: cfg.BoundariesURL,
	}, dashboard.Options{
		Country:           cfg.Country,
		Location:          cfg.Location,
		Clock:             clockwork.NewRealClock(),
		BoundariesTimeout: cfg.BoundariesTimeout,
		Logger:            logger,
		Metrics:           metrics,
	})
	exitCode := 0
	if err != nil {
		logger.Error("failed to load dashboard data", "error", err)
		exitCode = 1
		stop()
	} else {
		provider.Set(bundle)
		logger.Info("dashboard ready", "addr", cfg.HTTPAddr)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
