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

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// claudeDefaultMaxTokens is sent when the request names no limit; the
// Messages API requires one.
const claudeDefaultMaxTokens = 4096

// claudeProvider talks to the Anthropic Messages API through the official
// SDK.
type claudeProvider struct {
	config ProviderConfig
	client anthropic.Client
}

func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	client := anthropic.NewClient(
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		anthropicoption.WithMaxRetries(0),
		anthropicoption.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &claudeProvider{config: cfg, client: client}
}

func (p *claudeProvider) Name() string { return "claude" }

// Chat sends one user message. Requests naming a non-Claude model run on
// the configured model, and temperature is capped at 1.
func (p *claudeProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if !strings.HasPrefix(model, "claude") {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(min(req.Temperature, 1)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.TopP > 0 {
		params.TopP = anthropic.Float(req.TopP)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude chat: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		used := string(msg.Model)
		if used == "" {
			used = model
		}
		return &ChatResponse{
			Text:       block.Text,
			Model:      used,
			TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}, nil
	}
	return nil, fmt.Errorf("claude: no text content in response")
}

// ListModels returns the first page of GET /v1/models.
func (p *claudeProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("claude models: %w", err)
	}

	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		info := ModelInfo{ID: m.ID, OwnedBy: "anthropic"}
		if !m.CreatedAt.IsZero() {
			info.Created = m.CreatedAt.Unix()
		}
		models = append(models, info)
	}
	return models, nil
}
