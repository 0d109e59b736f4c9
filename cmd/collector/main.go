// Command collector runs one end-to-end collection: it walks the NeoWs feed
// in short date windows, normalizes and accumulates records until the target
// count or the year ceiling is hit, and stores the batch in SQLite. An admin
// HTTP server exposes health and metrics for the duration of the run.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/lunardrift/neo-tracker/internal/adapter/http"
	kafkaadapter "github.com/lunardrift/neo-tracker/internal/adapter/kafka"
	"github.com/lunardrift/neo-tracker/internal/adapter/neows"
	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
	"github.com/lunardrift/neo-tracker/internal/collector"
	"github.com/lunardrift/neo-tracker/internal/config"
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
	client := neows.NewClient(cfg.FeedBaseURL, cfg.APIKey, cfg.FetchTimeout, logger, metrics)

	// Event streaming is feature-flagged via KAFKA_BROKERS.
	var publisher collector.EventPublisher
	if cfg.KafkaEnabled() {
		kp := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger, metrics)
		defer kp.Close() //nolint:errcheck
		publisher = kp
		logger.Info("kafka event sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka event sink disabled")
	}

	driver := collector.New(client, store, publisher, collector.Policy{
		Target:           cfg.TargetRecords,
		StartDate:        cfg.ParsedStartDate,
		CeilingYear:      cfg.CeilingYear,
		WindowDays:       cfg.WindowDays,
		SuccessDelay:     cfg.SuccessDelay,
		RetryDelay:       cfg.RetryDelay,
		MaxWindowRetries: cfg.MaxWindowRetries,
	}, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, driver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	batch, err := driver.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("http server shutdown error", "error", shutdownErr)
	}

	if err != nil {
		logger.Error("collection failed", "error", err)
		os.Exit(1)
	}

	logger.Info("collection complete",
		"objects", batch.ObjectCount(),
		"events", batch.EventCount(),
		"database", cfg.DatabasePath,
	)
}
