// @title                       MEDSTARGENX Accounts API
// @version                     1.0
// @description                 Clinician and administrator accounts: registration, approval workflow and token authentication.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medstargenx/accounts/internal/api"
	"github.com/medstargenx/accounts/internal/api/handler"
	"github.com/medstargenx/accounts/internal/core/service"
	mongodb "github.com/medstargenx/accounts/internal/infrastructure/db/mongo"
	redisdb "github.com/medstargenx/accounts/internal/infrastructure/db/redis"
	"github.com/medstargenx/accounts/internal/infrastructure/queue"
	"github.com/medstargenx/accounts/internal/pkg/config"
	"github.com/medstargenx/accounts/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Pretty: true})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "accounts",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()

	accountRepo := mongodb.NewAccountRepository(db)
	activityRepo := mongodb.NewActivityRepository(db)
	if err := accountRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create account indexes")
	}
	if err := activityRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create activity indexes")
	}

	// --- Activity dispatcher ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(
		cfg.Security.ActivityWorkers,
		service.NewActivityService(activityRepo, logger.Component("activity")),
		logger.Component("dispatcher"),
	)
	dispatcher.Start(workerCtx)

	// --- Services ---
	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	throttle := redisdb.NewLoginThrottle(rdb, cfg.Security.LoginMaxAttempts, cfg.Security.LoginLockout)
	accounts := service.NewAccountService(accountRepo, tokens, throttle, dispatcher, cfg.Security.BcryptCost, logger.Component("accounts"))
	approvals := service.NewApprovalService(accountRepo, activityRepo, dispatcher, logger.Component("approvals"))

	e := api.NewRouter(api.RouterOptions{
		Accounts:  accounts,
		Approvals: approvals,
		Tokens:    tokens,
		Finder:    accountRepo,
		Readiness: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		Logger:         log,
		CORSOrigins:    cfg.Security.CORSOrigins,
		RateLimitRPS:   cfg.Security.RateLimitRPS,
		RateLimitBurst: cfg.Security.RateLimitBurst,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	cancelWorkers()
	dispatcher.Wait()
	log.Info().Msg("shutdown complete")
}
