// Package main provides the entry point for the convention service outbox worker.
//
// The worker owns event delivery: it subscribes the notification handlers to
// the in-process bus and runs the crawler that drains unpublished events from
// the outbox. A Postgres advisory lock keeps a single crawler active across
// worker replicas.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/convention-service/internal/config"
	"github.com/helixir/convention-service/internal/database"
	"github.com/helixir/convention-service/internal/events"
	"github.com/helixir/convention-service/internal/notifications"
	"github.com/helixir/convention-service/internal/observability"
	"github.com/helixir/convention-service/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("convention-service worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Only one worker instance may crawl the outbox at a time.
	acquired, err := db.AcquireAdvisoryLock(ctx, cfg.Outbox.CrawlerLockKey)
	if err != nil {
		return fmt.Errorf("acquire crawler lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("crawler lock %d is held by another worker instance", cfg.Outbox.CrawlerLockKey)
	}
	defer func() {
		if releaseErr := db.ReleaseAdvisoryLock(context.Background(), cfg.Outbox.CrawlerLockKey); releaseErr != nil {
			logger.Error().Err(releaseErr).Msg("failed to release crawler lock")
		}
	}()

	// Set up metrics when enabled.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Repositories backing the bus and the notification handlers.
	conventionRepo := repository.NewPgConventionRepository(db)
	outboxRepo := repository.NewPgOutboxRepository(db)

	// The bus persists publication results back into the outbox.
	factory := events.NewFactory(nil, nil)
	bus := events.NewBus(factory, outboxRepo.Update, logger, metrics)

	// Notification handlers behind a rate-limited email gateway.
	gateway := notifications.NewRateLimitedGateway(
		notifications.NewLogEmailGateway(logger),
		cfg.Notifications.RatePerSecond,
		cfg.Notifications.Burst,
	)
	notifier := notifications.NewNotifier(gateway, conventionRepo, logger, metrics)
	if err := notifier.RegisterAll(bus); err != nil {
		return fmt.Errorf("register notification handlers: %w", err)
	}

	crawler := events.NewCrawler(
		outboxRepo,
		bus,
		events.NewMaxAttemptsPolicy(cfg.Outbox.MaxAttempts),
		cfg.Outbox.PollInterval,
		logger,
		metrics,
	)

	// Expose metrics on the worker as well when enabled.
	var metricsServer *http.Server
	errCh := make(chan error, 1)
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Drain whatever accumulated while no worker was running, then poll.
	if err := crawler.ProcessEvents(ctx); err != nil {
		logger.Error().Err(err).Msg("initial crawl failed")
	}

	crawlDone := make(chan struct{})
	go func() {
		crawler.Start(ctx)
		close(crawlDone)
	}()

	logger.Info().
		Dur("poll_interval", cfg.Outbox.PollInterval).
		Int("max_attempts", cfg.Outbox.MaxAttempts).
		Msg("convention-service worker is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("worker error")
		return err
	}

	// Graceful shutdown.
	crawler.Stop()
	<-crawlDone

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("convention-service worker shutdown complete")
	return nil
}
