package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/database"
	"github.com/stemsi/assessment-backend/internal/handler"
	"github.com/stemsi/assessment-backend/internal/logger"
	"github.com/stemsi/assessment-backend/internal/repository"
	"github.com/stemsi/assessment-backend/internal/repository/memory"
	"github.com/stemsi/assessment-backend/internal/router"
	"github.com/stemsi/assessment-backend/internal/service"
	"github.com/stemsi/assessment-backend/internal/validator"
	"github.com/stemsi/assessment-backend/internal/worker"
)

// testStore is served by both the postgres repository and the memory store.
type testStore interface {
	service.TestStore
	worker.ExpiryStore
}

// stores bundles whichever backend STORE_DRIVER selected.
type stores struct {
	tests     testStore
	responses service.ResponseStore
	users     service.UserStore
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		m := memory.New()
		return &stores{
			tests:     m.Tests(),
			responses: m.Responses(),
			users:     m.Users(),
			close:     func() {},
		}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &stores{
		tests:     repository.NewTestRepository(pool),
		responses: repository.NewResponseRepository(pool),
		users:     repository.NewUserRepository(pool),
		close:     pool.Close,
	}, nil
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting assessment backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Store ────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Redis only accelerates; the service keeps working without it.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, caching and rate limiting disabled")
		rdb = nil
	} else {
		defer rdb.Close()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	cache := service.NewTestCache(rdb, st.tests, cfg, log)
	authService := service.NewAuthService(cfg)
	testService := service.NewTestService(st.tests, cache, log)
	attemptService := service.NewAttemptService(st.tests, st.responses, st.users, cache, cfg, log)
	leaderboardService := service.NewLeaderboardService(st.tests, st.responses, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Test:    handler.NewTestHandler(testService),
		Attempt: handler.NewAttemptHandler(attemptService, testService, leaderboardService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	expiryWorker := worker.NewExpiryWorker(st.tests, rdb, cfg.ExpirySweepInterval, log)
	go func() {
		defer close(workerDone)
		expiryWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, rdb, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Stop the expiry sweep and wait for an in-flight pass to finish.
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Expiry worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
