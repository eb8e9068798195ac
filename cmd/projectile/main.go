package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/api"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/auth"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/cache"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/stream"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/sweep"
	"github.com/Shravan-1908/projectile-motion-simulator/web"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("PROJECTILE_LOG_LEVEL")),
	}))
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("could not load .env file", "error", envErr)
	}

	addr := os.Getenv("PROJECTILE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	sweepCfg := loadSweepConfig(logger)
	evaluator := sweep.NewEvaluator(sweepCfg, logger)

	cacheCfg := loadCacheConfig(logger)
	trajCache := cache.NewTrajectoryCache(cacheCfg, logger)

	streamCfg := loadStreamConfig(logger, sweepCfg.MaxPoints)
	streamHandler := stream.NewHandler(trajCache, streamCfg, logger)

	var draining atomic.Bool
	srv := api.NewServer(addr, logger, authCfg, api.Deps{
		Cache:     trajCache,
		Evaluator: evaluator,
		Stream:    streamHandler,
		MaxPoints: sweepCfg.MaxPoints,
		Web:       web.Content,
		Ready: func() error {
			if draining.Load() {
				return errors.New("shutting down")
			}
			return nil
		},
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start cache background worker.
	go trajCache.Start(ctx)

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	draining.Store(true)
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("PROJECTILE_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("PROJECTILE_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("PROJECTILE_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("PROJECTILE_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// positiveInt reads a positive integer variable, warning and keeping def
// when it is malformed.
func positiveInt(logger *slog.Logger, name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+name+" value, using default", "value", v, "default", def)
		return def
	}
	return n
}

func loadSweepConfig(logger *slog.Logger) sweep.Config {
	cfg := sweep.Config{
		Workers:   positiveInt(logger, "PROJECTILE_SWEEP_WORKERS", runtime.NumCPU()),
		MaxPoints: positiveInt(logger, "PROJECTILE_MAX_POINTS", 100000),
	}

	logger.Info("sweep config",
		"workers", cfg.Workers,
		"max_points", cfg.MaxPoints,
	)

	return cfg
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		MaxEntries:    positiveInt(logger, "PROJECTILE_CACHE_ENTRIES", 256),
		TTL:           time.Duration(positiveInt(logger, "PROJECTILE_CACHE_TTL", 600)) * time.Second,
		SweepInterval: time.Duration(positiveInt(logger, "PROJECTILE_CACHE_SWEEP_INTERVAL", 30)) * time.Second,
	}

	logger.Info("cache config",
		"max_entries", cfg.MaxEntries,
		"ttl_seconds", cfg.TTL.Seconds(),
		"sweep_interval_seconds", cfg.SweepInterval.Seconds(),
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger, maxPoints int) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: positiveInt(logger, "PROJECTILE_STREAM_MAX_CONCURRENT", 10),
		MaxConcurrent:      positiveInt(logger, "PROJECTILE_STREAM_MAX_TOTAL", 1000),
		KeepaliveInterval:  time.Duration(positiveInt(logger, "PROJECTILE_STREAM_KEEPALIVE_INTERVAL", 30)) * time.Second,
		MaxPoints:          maxPoints,
	}

	if v := os.Getenv("PROJECTILE_STREAM_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid PROJECTILE_STREAM_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_concurrent", cfg.MaxConcurrent,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
