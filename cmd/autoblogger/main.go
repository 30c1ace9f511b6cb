// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the autoblogger API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoblogger/internal/ai"
	"autoblogger/internal/cache"
	"autoblogger/internal/config"
	"autoblogger/internal/cost"
	"autoblogger/internal/database"
	"autoblogger/internal/generation"
	"autoblogger/internal/handlers"
	"autoblogger/internal/middleware"
	"autoblogger/internal/router"
	"autoblogger/internal/session"
	"autoblogger/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var logHandler slog.Handler
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"ai_provider", cfg.AIProvider,
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if _, err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if _, err := database.Seed(ctx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (session store and model list cache).
	valkeyClient, err := cache.ConnectValkey(ctx, cache.Options{
		Host:     cfg.ValkeyHost,
		Port:     cfg.ValkeyPort,
		Password: cfg.ValkeyPassword,
	})
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Session cookies are Secure (HTTPS-only) outside development.
	sessionStore := session.NewStore(valkeyClient, !cfg.IsDev()).WithTTL(cfg.SessionTTL)

	// AI provider registry with every provider that has a key.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})
	if !aiRegistry.HasProvider(cfg.AIProvider) {
		slog.Warn("active ai provider has no api key, generation requests will fail", "provider", cfg.AIProvider)
	}
	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)

	articleModel := aiRegistry.DefaultModel()
	if articleModel == "" {
		articleModel = cfg.OpenAIModel
	}
	aiClient := ai.NewClient(aiRegistry, ai.Defaults{
		ArticleModel:    articleModel,
		EnrichmentModel: cfg.EnrichmentModel,
		QualityModel:    cfg.QualityModel,
		MaxTokens:       cfg.MaxTokens,
		Temperature:     cfg.Temperature,
	}, logger)

	userStore := store.NewUserStore(db)
	contentStore := store.NewContentStore(db, cfg.SlugMaxAttempts)

	limits := generation.DefaultLimits()
	limits.MaxBulkTopics = cfg.MaxBulkTopics
	limits.MinWordCount = cfg.MinWordCount
	limits.MaxWordCount = cfg.MaxWordCount

	pipeline := generation.NewService(aiClient, contentStore, cost.NewEstimator(cfg.Pricing), generation.Config{
		Timeout:            cfg.GenerationTimeout,
		BulkDelay:          cfg.BulkDelay,
		Limits:             limits,
		DefaultModel:       articleModel,
		DefaultTemperature: cfg.Temperature,
	}, logger)

	modelsCache := cache.NewModelsCache(valkeyClient, cfg.ModelsCacheTTL)

	limiter := middleware.NewRateLimiter(cfg.GenerationsPerHour, time.Hour, middleware.ByUserOrIP).
		WithMessage("Too many generation requests. Please try again later.").
		WithStore(cache.NewWindow(valkeyClient))

	r := router.New(router.Deps{
		Logger:   logger,
		Sessions: sessionStore,
		Auth:     handlers.NewAuth(sessionStore, userStore),
		Content:  handlers.NewContent(contentStore, pipeline, aiRegistry, modelsCache, cfg.IsDev()),
		HSTS:     !cfg.IsDev(),
		Limiter:  limiter,
		Checks: map[string]router.Check{
			"database": db.PingContext,
			"valkey": func(ctx context.Context) error {
				return valkeyClient.Ping(ctx).Err()
			},
		},
	})

	// WriteTimeout must cover a whole bulk run: every topic's generation
	// budget plus the delays between them.
	writeTimeout := time.Duration(cfg.MaxBulkTopics)*(cfg.GenerationTimeout+cfg.BulkDelay) + 30*time.Second
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
