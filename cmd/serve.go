package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"QueryFilter/internal/db"
	"QueryFilter/internal/handler"
	"QueryFilter/internal/logger"
	"QueryFilter/internal/model"
	"QueryFilter/internal/router"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP service",
	Long: `Start the HTTP service.

Endpoints:
  GET|POST /api/parse   parse only, returns the filter
  GET|POST /api/index   parse and run against PostgreSQL
  GET|POST /api/count   parse and count (cached in Redis)
  GET      /metrics     Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	if err := db.InitPostgres(ctx, cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	defer db.ClosePostgres()
	logger.Info("postgres_connected", nil)

	svc := &handler.Service{
		DB:              db.Pool,
		CountTTL:        cfg.CountCache.TTL(),
		PermissionClaim: cfg.Auth.JWT.PermissionClaim,
	}

	// Redis не обязателен: без него счётчики не кэшируются
	db.InitRedis(cfg.RedisAddr)
	if err := db.PingRedis(ctx); err != nil {
		logger.Warn("redis_unavailable", map[string]any{"error": err.Error()})
	} else {
		svc.Cache = db.RDB
		if err := model.FlushCountCache(ctx, db.RDB, ""); err != nil {
			logger.Warn("count_cache_flush_failed", map[string]any{"error": err.Error()})
		}
	}

	// Initialize registry
	if err := model.InitRegistry(cfg.ModelsDir, cfg.Parser.Location()); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	logger.Info("models_initialized", map[string]any{"models": model.Names()})

	mux, err := router.NewMux(cfg, svc)
	if err != nil {
		logger.Error("router_init_failed", map[string]any{"error": err.Error()})
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", map[string]any{"error": err.Error()})
			return err
		}
	case <-ctx.Done():
		logger.Info("server_shutdown", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
