package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/config"
	"github.com/rentbook/rentbook-api/internal/domain"
	"github.com/rentbook/rentbook-api/internal/handler"
	"github.com/rentbook/rentbook-api/internal/infra/cache"
	"github.com/rentbook/rentbook-api/internal/infra/observability"
	"github.com/rentbook/rentbook-api/internal/infra/storage"
	"github.com/rentbook/rentbook-api/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_dir", cfg.DataDir),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "rentbook-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	snapshotCache := cache.New[*domain.Collection](cfg.CacheTTL)
	store, err := storage.NewFileStore(cfg.DataDir, snapshotCache, logger, metrics)
	if err != nil {
		logger.Fatal("failed to open ledger store", zap.Error(err))
	}
	users, err := storage.NewFileUserStore(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open user store", zap.Error(err))
	}

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, logger, metrics)
	reportsSvc := service.NewReportsService(store, logger)
	authSvc := service.NewAuthService(users, logger, cfg.JWTSecret, cfg.JWTAccessTTL)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, reportsSvc, authSvc, metrics, logger, cfg.AllowedOrigins)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
