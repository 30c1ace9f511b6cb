// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIProvider implements the Provider interface using the OpenAI
// chat completions API through the official SDK. Mistral reuses it with a
// different base URL since its API is OpenAI-compatible.
type openAIProvider struct {
	name   string
	config ProviderConfig
	client openai.Client

	// modelFilter, when set, keeps only model ids containing it.
	modelFilter string
}

// newOpenAI creates a new OpenAI provider.
func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	p := newOpenAICompatible("openai", cfg)
	p.modelFilter = "gpt"
	return p
}

// newOpenAICompatible builds a provider for any endpoint speaking the
// OpenAI chat completions format. SDK retries are disabled: callers decide
// whether a failed generation is attempted again.
func newOpenAICompatible(name string, cfg ProviderConfig) *openAIProvider {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &openAIProvider{name: name, config: cfg, client: client}
}

func (p *openAIProvider) Name() string { return p.name }

// Chat sends a chat completion request and returns the assistant's
// response text with the reported token usage.
func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" || (p.name != "openai" && strings.HasPrefix(model, "gpt-")) {
		model = p.config.Model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(req.FrequencyPenalty)
	}
	if req.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(req.PresencePenalty)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices returned", p.name)
	}

	used := resp.Model
	if used == "" {
		used = model
	}
	return &ChatResponse{
		Text:       resp.Choices[0].Message.Content,
		Model:      used,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// ListModels returns the models exposed by GET /models, narrowed to chat
// models when the provider has a filter.
func (p *openAIProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s models: %w", p.name, err)
	}

	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		if p.modelFilter != "" && !strings.Contains(m.ID, p.modelFilter) {
			continue
		}
		models = append(models, ModelInfo{ID: m.ID, Created: m.Created, OwnedBy: m.OwnedBy})
	}
	return models, nil
}
