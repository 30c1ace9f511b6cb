// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"autoblogger/internal/ai"
)

const (
	// modelsKeyPrefix is the Valkey key prefix for cached model listings.
	modelsKeyPrefix = "models:"

	// DefaultModelsTTL is how long a provider's model list stays cached.
	DefaultModelsTTL = time.Hour
)

// FetchFunc loads a fresh model list from the provider.
type FetchFunc func(ctx context.Context) ([]ai.ModelInfo, error)

// ModelsCache keeps provider model listings in Valkey for a fixed TTL.
// Concurrent misses for the same provider share a single fetch. A nil
// client disables storage and every call fetches.
type ModelsCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewModelsCache creates a models cache backed by the given Valkey client.
func NewModelsCache(client *redis.Client, ttl time.Duration) *ModelsCache {
	if ttl <= 0 {
		ttl = DefaultModelsTTL
	}
	return &ModelsCache{client: client, ttl: ttl}
}

// Get returns the cached list for provider, calling fetch on a miss and
// storing its result. Cache read and write errors are logged and treated
// as misses; fetch errors are returned and nothing is stored.
func (mc *ModelsCache) Get(ctx context.Context, provider string, fetch FetchFunc) ([]ai.ModelInfo, error) {
	if models, ok := mc.lookup(ctx, provider); ok {
		return models, nil
	}

	v, err, shared := mc.group.Do(provider, func() (any, error) {
		// Another caller may have refreshed the entry while this one waited.
		if models, ok := mc.lookup(ctx, provider); ok {
			return models, nil
		}
		models, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		mc.store(ctx, provider, models)
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("models cache shared fetch", "provider", provider)
	}
	return v.([]ai.ModelInfo), nil
}

// Invalidate drops the cached list for provider.
func (mc *ModelsCache) Invalidate(ctx context.Context, provider string) {
	if mc.client == nil {
		return
	}
	if err := mc.client.Del(ctx, modelsKeyPrefix+provider).Err(); err != nil {
		slog.Warn("models cache invalidate error", "provider", provider, "error", err)
	}
}

func (mc *ModelsCache) lookup(ctx context.Context, provider string) ([]ai.ModelInfo, bool) {
	if mc.client == nil {
		return nil, false
	}
	data, err := mc.client.Get(ctx, modelsKeyPrefix+provider).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("models cache get error", "provider", provider, "error", err)
		return nil, false
	}

	var models []ai.ModelInfo
	if err := json.Unmarshal(data, &models); err != nil {
		slog.Warn("models cache decode error", "provider", provider, "error", err)
		return nil, false
	}
	slog.Debug("models cache hit", "provider", provider)
	return models, true
}

func (mc *ModelsCache) store(ctx context.Context, provider string, models []ai.ModelInfo) {
	if mc.client == nil {
		return
	}
	data, err := json.Marshal(models)
	if err != nil {
		slog.Warn("models cache encode error", "provider", provider, "error", err)
		return
	}
	if err := mc.client.Set(ctx, modelsKeyPrefix+provider, data, mc.ttl).Err(); err != nil {
		slog.Warn("models cache set error", "provider", provider, "error", err)
	}
}
