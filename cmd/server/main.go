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

	"gemini-chat/internal/config"
	"gemini-chat/internal/database"
	"gemini-chat/internal/handlers"
	"gemini-chat/internal/middleware"
	"gemini-chat/internal/router"
	"gemini-chat/internal/services"
	"gemini-chat/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting chat proxy", zap.String("env", cfg.Env))

	// ──── Step 2: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiConcurrentReqs,
		cfg.GeminiTimeout,
		logger,
	)
	if err != nil {
		logger.Fatal("Gemini client initialization failed", zap.Error(err))
	}
	defer geminiService.Close()
	logger.Info("Gemini client initialized",
		zap.String("model", cfg.GeminiModel),
		zap.Int("concurrent_requests", cfg.GeminiConcurrentReqs))

	// ──── Step 3: Rate Limiter ────
	var chatLimiter middleware.Limiter
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		chatLimiter = middleware.NewRedisLimiter(redisClient, cfg.ChatRateLimit, time.Minute)
		logger.Info("Redis rate limiter enabled", zap.Int("per_minute", cfg.ChatRateLimit))
	} else {
		memLimiter := middleware.NewMemoryLimiter(cfg.ChatRateLimit, time.Minute)
		defer memLimiter.Close()
		chatLimiter = memLimiter
		logger.Info("in-memory rate limiter enabled", zap.Int("per_minute", cfg.ChatRateLimit))
	}

	// ──── Step 4: Handlers ────
	chatHandler := handlers.NewChatHandler(geminiService, cfg.MaxRequestBytes, logger)
	streamHub := websocket.NewHub(geminiService, cfg.FrontendURL, logger)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(chatHandler, streamHub, chatLimiter, cfg.FrontendURL, logger)

	// No WriteTimeout: streamed replies may outlive it; GeminiTimeout bounds them.
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		streamHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Info("chat proxy ready",
		zap.String("chat", fmt.Sprintf("http://localhost:%s/api/chat", cfg.Port)),
		zap.String("stream", fmt.Sprintf("ws://localhost:%s/api/chat/stream", cfg.Port)))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProductionConfig().Build()
}
