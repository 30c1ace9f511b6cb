// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"autoblogger/internal/cost"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache + session store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	SessionTTL     time.Duration

	// AI provider settings
	AIProvider string // "openai", "claude", "mistral"

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	ClaudeKey     string
	ClaudeModel   string
	ClaudeBaseURL string

	MistralKey     string
	MistralModel   string
	MistralBaseURL string

	// Model defaults for the generation client. The article model is the
	// default for the primary call; enrichment runs on a cheaper model.
	EnrichmentModel string
	QualityModel    string
	MaxTokens       int
	Temperature     float64

	// Price table handed to the cost estimator.
	Pricing cost.PriceTable

	// Generation limits
	GenerationTimeout  time.Duration
	BulkDelay          time.Duration
	MaxBulkTopics      int
	MinWordCount       int
	MaxWordCount       int
	GenerationsPerHour int
	ModelsCacheTTL     time.Duration
	SlugMaxAttempts    int
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a numeric setting cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "autoblogger"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "autoblogger"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		AIProvider: envOrDefault("AI_PROVIDER", "openai"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   envOrDefault("OPENAI_MODEL", "gpt-4-turbo-preview"),
		OpenAIBaseURL: envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		ClaudeKey:     os.Getenv("CLAUDE_API_KEY"),
		ClaudeModel:   envOrDefault("CLAUDE_MODEL", "claude-sonnet-4-6"),
		ClaudeBaseURL: envOrDefault("CLAUDE_BASE_URL", "https://api.anthropic.com"),

		MistralKey:     os.Getenv("MISTRAL_API_KEY"),
		MistralModel:   envOrDefault("MISTRAL_MODEL", "mistral-large-latest"),
		MistralBaseURL: envOrDefault("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),

		EnrichmentModel: envOrDefault("OPENAI_ENRICHMENT_MODEL", "gpt-3.5-turbo"),
		QualityModel:    envOrDefault("OPENAI_QUALITY_MODEL", "gpt-4-turbo-preview"),
	}

	var err error
	if cfg.MaxTokens, err = envInt("OPENAI_MAX_TOKENS", 4000); err != nil {
		return nil, err
	}
	if cfg.Temperature, err = envFloat("OPENAI_TEMPERATURE", 0.7); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = envDuration("GENERATION_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.BulkDelay, err = envDuration("BULK_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.MaxBulkTopics, err = envInt("MAX_BULK_TOPICS", 10); err != nil {
		return nil, err
	}
	if cfg.MinWordCount, err = envInt("MIN_WORD_COUNT", 100); err != nil {
		return nil, err
	}
	if cfg.MaxWordCount, err = envInt("MAX_WORD_COUNT", 5000); err != nil {
		return nil, err
	}
	if cfg.GenerationsPerHour, err = envInt("MAX_CONTENT_GENERATIONS_PER_HOUR", 50); err != nil {
		return nil, err
	}
	if cfg.ModelsCacheTTL, err = envDuration("MODELS_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SlugMaxAttempts, err = envInt("SLUG_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.Pricing = cost.DefaultPriceTable()
	if raw := os.Getenv("OPENAI_PRICING"); raw != "" {
		rows, err := ParsePricing(raw)
		if err != nil {
			return nil, err
		}
		cfg.Pricing = cfg.Pricing.With(rows)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// ParsePricing reads a price override list of the form
// "model=input:output,model=input:output" (USD per 1,000 tokens).
func ParsePricing(raw string) (map[string]cost.Rate, error) {
	rows := make(map[string]cost.Rate)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		model, rates, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("OPENAI_PRICING: entry %q is missing '='", entry)
		}
		in, out, ok := strings.Cut(rates, ":")
		if !ok {
			return nil, fmt.Errorf("OPENAI_PRICING: entry %q is missing ':'", entry)
		}
		inRate, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
		if err != nil {
			return nil, fmt.Errorf("OPENAI_PRICING: input rate for %q: %w", model, err)
		}
		outRate, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
		if err != nil {
			return nil, fmt.Errorf("OPENAI_PRICING: output rate for %q: %w", model, err)
		}
		rows[strings.TrimSpace(model)] = cost.Rate{Input: inRate, Output: outRate}
	}
	return rows, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
