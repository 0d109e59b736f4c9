// Command dashboard serves the query API over a previously collected
// database: session-scoped filters, the filtered approach view, and the
// fixed analytical query catalog.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
	"github.com/lunardrift/neo-tracker/internal/config"
	"github.com/lunardrift/neo-tracker/internal/dashboard"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck

	store := sqlite.NewStore(db, logger, metrics)
	srv := dashboard.NewServer(cfg.DashboardAddr, store, cfg.QueryRowLimit, cfg.QueryCacheSize, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
