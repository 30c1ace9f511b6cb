// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai talks to hosted chat-completion APIs (OpenAI, Claude and
// Mistral). Providers sit behind a Registry that picks the active one by
// name, and Client builds the four content operations on top of it.
package ai

import "context"

// ChatRequest is a single system+user exchange sent to a provider.
// Zero-valued sampling fields other than Temperature are left to the
// provider's defaults.
type ChatRequest struct {
	Model            string
	System           string // optional
	User             string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// ChatResponse is the provider's answer plus the usage it reported.
type ChatResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// ModelInfo describes one model exposed by a provider's listing endpoint.
type ModelInfo struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Provider is one hosted chat API.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Name() string
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// factories build the providers NewRegistry knows by name.
var factories = map[string]func(ProviderConfig) Provider{
	"openai":  func(c ProviderConfig) Provider { return newOpenAI(c) },
	"claude":  func(c ProviderConfig) Provider { return newClaude(c) },
	"mistral": func(c ProviderConfig) Provider { return newMistral(c) },
}
