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

	"github.com/davazquez/commonroom-backend/internal/communities"
	"github.com/davazquez/commonroom-backend/internal/cron"
	"github.com/davazquez/commonroom-backend/internal/notifications"
	"github.com/davazquez/commonroom-backend/internal/posts"
	"github.com/davazquez/commonroom-backend/pkg/config"
	"github.com/davazquez/commonroom-backend/pkg/db"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/metrics"
	"github.com/davazquez/commonroom-backend/pkg/migrate"
	"github.com/davazquez/commonroom-backend/pkg/redis"
)

const lockKeyFormat = "cr:reconcile-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconcile-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	gormDB := dbClient.DB()
	jobMetrics := metrics.NewReconcileJobMetrics(prometheus.DefaultRegisterer)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Reconcile.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile lock", err)
		os.Exit(1)
	}

	memberCountJob, err := cron.NewMemberCountJob(cron.MemberCountJobParams{
		Repository: communities.NewRepository(gormDB),
		Logger:     logg,
		Metrics:    jobMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create member count job", err)
		os.Exit(1)
	}

	voteCountJob, err := cron.NewVoteCountJob(cron.VoteCountJobParams{
		Repository: posts.NewRepository(gormDB),
		Logger:     logg,
		Metrics:    jobMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vote count job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewNotificationRetentionJob(cron.NotificationRetentionJobParams{
		Repository: notifications.NewRepository(gormDB),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(memberCountJob)
	registry.Register(voteCountJob)
	registry.Register(retentionJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Reconcile.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Reconcile.Interval.String(),
	})
	logg.Info(ctx, "starting reconcile worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconcile worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconcile worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
