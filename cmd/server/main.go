package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/evaluator"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/executor"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/leaderboard"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/service"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/session"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/worker"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common/security"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/cache"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/config"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/database"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to a dotenv file")
	migrate := pflag.Bool("migrate", false, "apply the database schema before serving")
	pflag.Parse()

	// 1. Configuration and logging
	config.Load(*envFile)
	cfg := config.AppConfig
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		os.Stderr.WriteString("logger init: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	fatal := func(msg string, err error) {
		logger.Error(ctx, msg, zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	security.InitJWT()

	// 2. Storage
	if err := database.Connect(); err != nil {
		fatal("Database connection failed", err)
	}
	defer database.Close()
	if *migrate {
		if err := database.Migrate(ctx, database.DB); err != nil {
			fatal("Schema migration failed", err)
		}
		logger.Info(ctx, "Schema migrated")
	}

	if err := cache.ConnectRedis(); err != nil {
		fatal("Redis connection failed", err)
	}
	defer cache.CloseRedis()

	userRepo := repository.NewPgUserRepository(database.DB)
	testRepo := repository.NewPgTestRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 3. Code runner and evaluation
	runner := executor.NewRateLimitedClient(
		executor.NewPistonClient(cfg.ExecutorURL, &http.Client{Timeout: cfg.ExecutorTimeout}),
		cfg.ExecutorRatePerSecond, cfg.ExecutorBurst,
	)
	eval := evaluator.New(runner, evaluator.WithThrottleRetries(cfg.ExecutorThrottleRetries, cfg.ExecutorRetryDelay))

	// 4. Session lifecycle
	store := session.NewRedisLocalStore(cache.RDB, cfg.LocalStateTTL)
	deadlines := session.NewRedisDeadlineIndex(cache.RDB)
	boards := leaderboard.NewService(testRepo, submissionRepo, userRepo, cache.RDB, cfg.LeaderboardCacheTTL)
	finalizer := session.NewFinalizer(submissionRepo, eval, store, deadlines,
		session.NewRedisLocker(cache.RDB), cfg.SubmitLockTTL, boards)
	sessions := session.NewManager(testRepo, submissionRepo, store, deadlines, finalizer, eval, runner)

	// 5. Deadline sweeper for sessions not held by this process
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	expiryWorker := worker.NewExpiryWorker(deadlines, sessions, cfg.ExpirySweepInterval, cfg.ExpirySweepBatchSize)
	go expiryWorker.Start(workerCtx)

	// 6. HTTP
	router := api.NewRouter(
		service.NewAuthService(userRepo),
		service.NewUserService(userRepo),
		service.NewTestService(testRepo),
		service.NewSubmissionService(submissionRepo, testRepo),
		sessions,
		boards,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "Server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Could not listen", err)
		}
	}()

	<-stop
	logger.Info(ctx, "Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown failed", zap.Error(err))
	}

	workerCancel()
	sessions.Close()
	logger.Info(ctx, "Server and workers stopped")
}
