package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/event-registry/internal/api"
	"github.com/Priya8975/event-registry/internal/config"
	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/engine"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/Priya8975/event-registry/internal/registry"
	"github.com/Priya8975/event-registry/internal/store"
	"github.com/Priya8975/event-registry/internal/version"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	owner := domain.Principal(cfg.OwnerPrincipal)
	if err := st.Init(ctx, owner); err != nil {
		logger.Error("failed to initialize registry", "owner", owner, "error", err)
		os.Exit(1)
	}
	logger.Info("registry initialized", "owner", owner, "driver", cfg.StoreDriver)

	var limiter *engine.RateLimiter
	if cfg.RedisURL != "" {
		redisClient, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		limiter = engine.NewRateLimiter(redisClient, cfg.WriteRateLimit, logger)
		logger.Info("write rate limiter enabled", "limit_per_second", cfg.WriteRateLimit)
	}

	reg := registry.New(st, logger)
	validator := identity.NewValidator([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	router := api.NewRouter(reg, st, validator, limiter, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port, "version", version.Version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (registry.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to PostgreSQL")
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("database migrations applied")
		return pg, nil

	case config.DriverSQLite:
		lite, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened SQLite database", "path", cfg.SQLitePath)
		return lite, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; state is lost on exit")
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
