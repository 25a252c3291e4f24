package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"whatsrelay/internal/config"
	"whatsrelay/internal/constants"
	"whatsrelay/internal/database"
	"whatsrelay/internal/logging"
	"whatsrelay/internal/metrics"
	"whatsrelay/internal/models"
	"whatsrelay/internal/retry"
	"whatsrelay/internal/routing"
	"whatsrelay/internal/service"
	"whatsrelay/internal/tracing"
	"whatsrelay/pkg/whatsapp"
)

func runServe(ctx context.Context) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logFile, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logFile.Close()

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
		"env":     cfg.App.Env,
	}).Info("Starting whatsrelay")
	if verbose {
		logger.Info("Verbose logging enabled - identifiers are logged unmasked")
	}

	if loader.Watch(logger, func(next *models.Config) {
		if err := logging.ApplyLevel(logger, next.Logging.Level, verbose); err != nil {
			logger.WithError(err).Warn("Ignoring invalid log level from reloaded config")
		}
	}) {
		logger.WithField("file", loader.ConfigFileUsed()).Info("Watching config file for changes")
	}

	tracingManager := tracing.NewTracingManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.WithError(err).Warn("Failed to initialize tracing")
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to shutdown tracing")
		}
	}()

	m := metrics.New()

	db, err := openDatabase(ctx, cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	notifier, err := service.NewNotifier(cfg.Notifications, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}

	loc, err := time.LoadLocation(cfg.App.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to load time zone: %w", err)
	}

	router := service.NewMessageRouter(db, routing.NewFilterProcessor(logger), routing.NewMessageFormatter(loc), m, logger)
	supervisor := service.NewSupervisor(
		service.NewSupervisorConfig(cfg.WhatsApp),
		db,
		whatsapp.NewFactory(logger),
		router,
		notifier,
		m,
		logger,
	)

	scheduler := service.NewScheduler(db, router.Groups(), cfg.Database.Cleanup, m, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cleanup scheduler: %w", err)
	}
	defer scheduler.Stop()

	server := NewServer(ServerDeps{
		Config:   cfg,
		Accounts: supervisor,
		Store:    db,
		Groups:   router.Groups(),
		DB:       db.DB(),
		Metrics:  m,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := supervisor.StartAll(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to start accounts: %w", err)
		}
		logger.WithField(service.LogFieldCount, supervisor.LiveCount()).Info("Accounts started")
		return nil
	})
	g.Go(func() error {
		server.PruneLimiters(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown server gracefully")
		}
		supervisor.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Stopped with error")
		return err
	}
	logger.Info("Shutdown completed")
	return nil
}

// openDatabase opens the store and applies migrations, retrying with
// exponential backoff while the file is locked or its volume is not ready
func openDatabase(ctx context.Context, path string, logger *logrus.Logger) (*database.Database, error) {
	backoff := retry.NewBackoff(retry.DefaultBackoffConfig())

	var db *database.Database
	err := backoff.Retry(ctx, func() error {
		var openErr error
		db, openErr = database.New(path)
		if openErr != nil {
			logger.WithError(openErr).Warn("Failed to initialize database")
		}
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	return db, nil
}
