package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensepie/internal/amqp"
	"expensepie/internal/config"
	"expensepie/internal/core"
	"expensepie/internal/log"
	"expensepie/internal/sheets/google"
	"expensepie/internal/storage"
	"expensepie/internal/store"
	"expensepie/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := log.Setup(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	if err != nil {
		slog.Error("Invalid logging configuration", log.FieldError, err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Sync worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sync worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.SeedIfEmpty(ctx, store.SeedsFromDir(cfg.DataDir)); err != nil {
		return err
	}

	exporter, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		ExpensesSheet:   cfg.GoogleSheetName,
		ChartSheet:      cfg.GoogleChartSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewSyncWorker(worker.StoreLedger{Ledger: repo}, exporter, core.GroupByCategory)

	// The spreadsheet may have drifted while the worker was down.
	if err := w.Resync(ctx); err != nil {
		logger.Warn("Initial sync failed", log.FieldError, err)
	}

	logger.Info("Sync worker started",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sync_interval", cfg.SyncInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})
	return g.Wait()
}
