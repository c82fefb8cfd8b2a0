package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/database"
	"github.com/stemsi/exstem-games/internal/handler"
	"github.com/stemsi/exstem-games/internal/logger"
	"github.com/stemsi/exstem-games/internal/middleware"
	"github.com/stemsi/exstem-games/internal/repository"
	"github.com/stemsi/exstem-games/internal/router"
	"github.com/stemsi/exstem-games/internal/service"
	"github.com/stemsi/exstem-games/internal/session"
	"github.com/stemsi/exstem-games/internal/validator"
	"github.com/stemsi/exstem-games/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Games")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	gameRepo := repository.NewGameRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	progressRepo := repository.NewFlashcardProgressRepository(rdb, cfg.ProgressTTL)

	// ─── Session Host ──────────────────────────────────────────────────
	manager := session.NewManager(session.SystemClock{}, cfg.SessionIdleTTL, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	sessionService := service.NewSessionService(service.SessionServiceConfig{
		Games:    gameRepo,
		Progress: progressRepo,
		Recorder: service.NewAttemptRecorder(rdb, log),
		Manager:  manager,
		Rdb:      rdb,
		Timings:  cfg.Timings(),
		CacheTTL: cfg.DefinitionCacheTTL,
	}, log)
	attemptService := service.NewAttemptService(gameRepo, attemptRepo, log)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	limiter := middleware.NewRateLimiter(workerCtx, cfg.ActionRatePerMinute, time.Minute)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService, log),
		Attempt: handler.NewAttemptHandler(attemptService, log),
		WS:      handler.NewWSHandler(sessionService, limiter, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────

	attemptWorker := worker.NewAttemptWorker(attemptRepo, rdb, log)
	workers.Add(2)
	go func() {
		defer workers.Done()
		attemptWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		manager.Run(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, limiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Exit live sessions so completions are queued and progress is flushed.
	sessionsCtx, sessionsCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sessionsCancel()
	manager.Shutdown(sessionsCtx)

	// 3. Stop background workers and wait for the attempt queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
