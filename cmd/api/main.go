// Package main is the entrypoint for the mailsub API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mailsub/mailsub/internal/cache"
	"github.com/mailsub/mailsub/internal/config"
	"github.com/mailsub/mailsub/internal/handler"
	"github.com/mailsub/mailsub/internal/metrics"
	"github.com/mailsub/mailsub/internal/migrate"
	"github.com/mailsub/mailsub/internal/repository"
	"github.com/mailsub/mailsub/internal/server"
	"github.com/mailsub/mailsub/internal/service"
	"github.com/mailsub/mailsub/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Apply migrations
	if cfg.MigrateOnStart {
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize the optional token cache. Interfaces stay nil when disabled.
	var (
		cacheClient  *cache.Cache
		tokenCache   service.TokenCache
		cacheChecker handler.HealthChecker
	)
	if cfg.CacheEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.TokenCacheTTL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			os.Exit(1)
		}
		tokenCache = cacheClient
		cacheChecker = cacheClient
		logger.Info("connected to Redis", "token_cache_ttl", cfg.TokenCacheTTL)
	} else if cfg.LocalTokenCache {
		local := cache.NewLocal(cfg.TokenCacheTTL)
		tokenCache = local
		cacheChecker = local
		logger.Info("using in-process token cache", "token_cache_ttl", cfg.TokenCacheTTL)
	} else {
		logger.Info("token cache disabled")
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheus(registry)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Initialize services
	subscriptionService := service.NewSubscriptionService(repo, recorder)
	tokenService := service.NewTokenService(repo, tokenCache, cfg.TokenStaleAfter, recorder)

	// Initialize handlers
	validator := validation.New()
	r := newRouter(routerDeps{
		root:          handler.New(),
		health:        handler.NewHealthHandler(repo, cacheChecker),
		subscriptions: handler.NewSubscriptionHandler(subscriptionService, validator, logger),
		tokens:        handler.NewTokenHandler(tokenService, validator, logger),
		metrics:       handler.NewMetricsHandler(registry),
		cfg:           cfg,
		logger:        logger,
	})

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"token_stale_after", tokenService.StaleAfter(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}
