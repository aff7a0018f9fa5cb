package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/returns-engine/internal/cron"
	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/internal/returns"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/instance"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
	"github.com/angelmondragon/returns-engine/pkg/migrate"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
	"github.com/angelmondragon/returns-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       cfg.App.LogLevel,
		Instance:    instance.GetID(),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	go func() {
		if err := metrics.Serve(ctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// lockName scopes the scheduler lock per environment so staging and prod can
// share a Redis instance.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	nudge, err := cron.NewStaleReturnNudgeJob(cron.StaleReturnNudgeJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: returns.NewRepository(dbClient.DB()),
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		StaleAfter: cfg.Returns.StalePendingAfter,
		Batch:      cfg.Returns.StaleNudgeBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("stale return nudge job: %w", err)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Repository:   outbox.NewRepository(dbClient.DB()),
		DeadLetters:  outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Outbox.RetentionDays,
		DLQRetention: cfg.Outbox.DLQRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:          logg,
		DB:              dbClient,
		Repository:      notifications.NewRepository(dbClient.DB()),
		Retention:       cfg.Returns.NotificationRetentionDays,
		UnreadRetention: cfg.Returns.NotificationUnreadRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}

	return cron.NewRegistry(nudge, retention, cleanup)
}
