/*
Package main is the entry point for the retrochat server.

It loads configuration, initializes the global logging system, wires the
configured persistence backend (plus the in-memory fallback) and the matching
rate limiter, starts the HTTP server and the live-update hub, and handles
operating system interrupt signals for a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"retrochat/internal/app/chat"
	"retrochat/internal/app/db"
	"retrochat/internal/app/store"
	"retrochat/internal/configs"
	"retrochat/internal/handler"
	"retrochat/internal/pkg/logx"
	"retrochat/internal/pkg/ratelimit"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("store_backend", cfg.StoreBackend).
		Bool("memory_fallback", cfg.MemoryFallback).
		Dur("typing_ttl", cfg.TypingTTL).
		Dur("rate_limit_window", cfg.RateLimitWindow).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatStore, postLimiter, err := buildStore(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize chat store")
	}
	defer chatStore.Close()

	hub := chat.NewHub()

	deps := &handler.AppDeps{
		Config:  cfg,
		Store:   chatStore,
		Limiter: postLimiter,
		Hub:     hub,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("retrochat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}

// buildStore constructs the configured primary backend and the rate limiter
// that shares its storage, then chains the in-memory fallback behind the
// primary when enabled.
func buildStore(cfg *configs.AppConfig) (store.Store, ratelimit.Limiter, error) {
	var primary store.Store
	var postLimiter ratelimit.Limiter

	switch cfg.StoreBackend {
	case configs.BackendMemory:
		return store.NewMemoryStore(cfg.TypingTTL), ratelimit.NewMemoryLimiter(cfg.RateLimitWindow), nil

	case configs.BackendPostgres:
		pool, err := db.NewPool(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		primary = store.NewPostgresStore(pool, cfg.TypingTTL)
		postLimiter = ratelimit.NewPostgresLimiter(pool, cfg.RateLimitWindow)

	case configs.BackendRest:
		primary = store.NewRestStore(cfg.RestBaseURL, cfg.RestAPIKey, cfg.TypingTTL)
		postLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimitWindow)

	case configs.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		primary = store.NewRedisStore(client, cfg.TypingTTL)
		postLimiter = ratelimit.NewRedisLimiter(client, cfg.RateLimitWindow)

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.MemoryFallback {
		return store.NewFallback(primary, store.NewMemoryStore(cfg.TypingTTL)), postLimiter, nil
	}

	return primary, postLimiter, nil
}
