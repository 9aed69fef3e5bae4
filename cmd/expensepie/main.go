package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensepie/internal/amqp"
	"expensepie/internal/backend"
	"expensepie/internal/cache"
	"expensepie/internal/config"
	apphttp "expensepie/internal/http"
	"expensepie/internal/log"
	"expensepie/internal/metrics"
	"expensepie/internal/middleware/ratelimit"
	"expensepie/internal/services"
	"expensepie/internal/store/seedwatch"
)

const (
	shutdownTimeout     = 30 * time.Second
	cacheSweepInterval  = 10 * time.Minute
	clientSweepInterval = 5 * time.Minute
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := log.Setup(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	if err != nil {
		slog.Error("Invalid logging configuration", log.FieldError, err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger.WithComponent(log.ComponentStorage).Logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}

	reg := metrics.NewDefault()
	opts := []services.Option{
		services.WithMetrics(reg),
		services.WithChartCache(cfg.ChartCacheSize, cfg.ChartCacheTTL),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Events are best effort; the ledger keeps working without them.
			logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(res.Backend, opts...)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Metrics: reg,
		Logger:  logger.WithComponent(log.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting expensepie server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return cache.NewManager(svc.ChartCache()).Run(gctx, cacheSweepInterval)
	})

	g.Go(func() error {
		return srv.Limiter().Run(gctx, clientSweepInterval)
	})

	if cfg.WatchSeeds {
		w, err := seedwatch.New(cfg.DataDir, svc)
		if err != nil {
			logger.Warn("Seed watcher disabled", log.FieldError, err, "dir", cfg.DataDir)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	return g.Wait()
}
