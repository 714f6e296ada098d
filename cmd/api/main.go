package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/davazquez/commonroom-backend/api/routes"
	"github.com/davazquez/commonroom-backend/internal/access"
	"github.com/davazquez/commonroom-backend/internal/communities"
	"github.com/davazquez/commonroom-backend/internal/memberships"
	"github.com/davazquez/commonroom-backend/internal/notifications"
	"github.com/davazquez/commonroom-backend/internal/posts"
	"github.com/davazquez/commonroom-backend/internal/roles"
	"github.com/davazquez/commonroom-backend/internal/users"
	"github.com/davazquez/commonroom-backend/internal/votes"
	"github.com/davazquez/commonroom-backend/pkg/config"
	"github.com/davazquez/commonroom-backend/pkg/db"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/migrate"
	"github.com/davazquez/commonroom-backend/pkg/pubsub"
	"github.com/davazquez/commonroom-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	userRepo := users.NewRepository(gormDB)
	communityRepo := communities.NewRepository(gormDB)
	roleRepo := roles.NewRepository(gormDB)
	membershipRepo := memberships.NewRepository(gormDB)
	voteRepo := votes.NewRepository(gormDB)
	postRepo := posts.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)

	gate, err := access.NewGate(access.GateParams{
		Communities: communityRepo,
		Memberships: membershipRepo,
		Permissions: roleRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create access gate", err)
		os.Exit(1)
	}

	decisionHooks := buildDecisionHooks(cfg, logg, notificationRepo)

	communitySvc, err := communities.NewService(communities.ServiceParams{
		Tx:            dbClient,
		CommunityRepo: communityRepo,
		RoleRepo:      roleRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create community service", err)
		os.Exit(1)
	}

	membershipSvc, err := memberships.NewService(memberships.ServiceParams{
		Tx:             dbClient,
		MembershipRepo: membershipRepo,
		CommunityRepo:  communityRepo,
		RoleRepo:       roleRepo,
		Gate:           gate,
		Logger:         logg,
		Hooks:          decisionHooks,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create membership service", err)
		os.Exit(1)
	}

	roleSvc, err := roles.NewService(roles.ServiceParams{RoleRepo: roleRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create role service", err)
		os.Exit(1)
	}

	postSvc, err := posts.NewService(posts.ServiceParams{PostRepo: postRepo, Gate: gate})
	if err != nil {
		logg.Error(context.Background(), "failed to create post service", err)
		os.Exit(1)
	}

	voteSvc, err := votes.NewService(votes.ServiceParams{
		Tx:       dbClient,
		VoteRepo: voteRepo,
		Targets:  postRepo,
		Gate:     gate,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vote service", err)
		os.Exit(1)
	}

	notificationSvc, err := notifications.NewService(notifications.ServiceParams{
		NotificationRepo: notificationRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Users:         userRepo,
		Gate:          gate,
		Communities:   communitySvc,
		Memberships:   membershipSvc,
		Roles:         roleSvc,
		Posts:         postSvc,
		Votes:         voteSvc,
		Notifications: notificationSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

// buildDecisionHooks wires the membership decision fan-out. Pub/Sub is
// optional; without a project id the recorder only writes notification rows.
func buildDecisionHooks(cfg *config.Config, logg *logger.Logger, repo notifications.Repository) []memberships.DecisionHook {
	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		client, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "pubsub unavailable, membership events will not be published", err)
		} else {
			pubsubClient = client
		}
	}

	recorder, err := notifications.NewRecorder(repo, pubsubClient.MembershipPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification recorder", err)
		os.Exit(1)
	}
	return []memberships.DecisionHook{recorder}
}
