package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bookhive/bookhive"
	"github.com/bookhive/bookhive/cache"
	"github.com/bookhive/bookhive/httpapi"
	"github.com/bookhive/bookhive/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// zapLogger adapts zap's sugared logger to the core Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (z *zapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	var logger bookhive.Logger
	if zl, err := zap.NewProduction(); err == nil {
		defer zl.Sync()
		logger = &zapLogger{s: zl.Sugar()}
	} else {
		// Plain stdout logging is still better than no server.
		logger = cache.NewConsoleLogger("bookhived")
		logger.Warn("zap initialization failed, falling back to console logging", "error", err)
	}

	info := bookhive.GetVersionInfo()
	logger.Info("starting bookhived", "version", info.Version, "go", info.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional keys degrade features: no REDIS_ADDR means local-only
	// cache and fan-out, no DATABASE_URL means the in-memory store.
	core, err := bookhive.New(bookhive.Config{
		InstanceID:      getEnv("INSTANCE_ID", "bookhive-1"),
		CacheTTL:        getEnvDuration("CACHE_TTL", 60*time.Second),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 4096),
		CacheBackend:    getEnv("CACHE_BACKEND", "lru"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to initialize core", "error", err)
		os.Exit(1)
	}
	defer core.Close()

	var st store.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		st, err = store.NewPostgresStore(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}
	defer st.Close()

	api := httpapi.New(httpapi.Config{
		Store:       st,
		Cache:       core.Cache,
		Broadcaster: core.Events,
		Hub:         core.Hub,
		Logger:      logger,
		Version:     bookhive.Version,
	})

	addr := getEnv("LISTEN_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}
