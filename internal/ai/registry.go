// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

type registered struct {
	provider Provider
	model    string
}

// Registry holds the configured providers and the name of the active one.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registered
	active  string
}

// NewRegistry builds a provider for every known name in configs that has an
// API key. Unknown names and keyless configs are skipped.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{entries: make(map[string]registered), active: active}
	for name, cfg := range configs {
		build, ok := factories[name]
		if !ok || cfg.APIKey == "" {
			continue
		}
		r.entries[name] = registered{provider: build(cfg), model: cfg.Model}
	}
	return r
}

// Chat sends req to the active provider.
func (r *Registry) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := r.Active()
	if err != nil {
		return nil, err
	}
	return p.Chat(ctx, req)
}

// ListModels lists the active provider's models.
func (r *Registry) ListModels(ctx context.Context) ([]ModelInfo, error) {
	p, err := r.Active()
	if err != nil {
		return nil, err
	}
	return p.ListModels(ctx)
}

// Active returns the active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no provider configured for %q", r.active)
	}
	return e.provider, nil
}

// DefaultModel is the configured model of the active provider, if any.
func (r *Registry) DefaultModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[r.active].model
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available returns the registered provider names in sorted order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Register adds or replaces a provider under name. A replaced provider
// keeps its configured model.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registered{provider: p, model: r.entries[name].model}
}

// HasProvider checks whether a named provider is configured and available.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}
