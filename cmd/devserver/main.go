package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regdesk/internal/auth"
	"regdesk/internal/config"
	"regdesk/internal/metrics"
	"regdesk/internal/registry"
	"regdesk/internal/server"
	"regdesk/internal/store"
)

func main() {
	cfg := config.LoadServer()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	release := cfg.Env == "production" || cfg.Env == "prod"
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, release, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func run(cfg config.Server, release bool, logger *zap.Logger) error {
	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	admin, err := registry.NewAdmin(cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}

	srv := server.New(
		registry.NewService(repo, admin, logger),
		auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL),
		metrics.New(),
		redisClient,
		logger,
	)

	httpSrv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: srv.Router(server.Options{
			CORSOrigins:     cfg.CORSOrigins,
			RateLimitPerMin: cfg.RateLimitPerMin,
			Release:         release,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", httpSrv.Addr), zap.String("env", cfg.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// openRepository uses Postgres when a database URL is configured and an
// in-memory registry otherwise.
func openRepository(ctx context.Context, dsn string, logger *zap.Logger) (registry.Repository, func(), error) {
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory registry")
		return registry.NewMemoryRepository(), func() {}, nil
	}

	db, err := store.NewDB(ctx, dsn, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}
	repo := registry.NewPostgresRepository(db.Client)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, func() { _ = db.Close() }, nil
}
