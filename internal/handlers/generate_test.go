// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"autoblogger/internal/ai"
	"autoblogger/internal/generation"
	"autoblogger/internal/models"
	"autoblogger/internal/session"
)

func TestGenerate(t *testing.T) {
	env := newTestEnv(false)

	rr := serve(t, http.MethodPost, "/content/generate", "/content/generate", env.handler.Generate, env.owner, map[string]any{
		"topic":        "Benefits of static typing",
		"content_type": "article",
		"tone":         "casual",
		"word_count":   800,
		"keywords":     []string{"go", "types"},
		"temperature":  0.4,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}

	req := env.pipeline.lastRequest
	if req.Topic != "Benefits of static typing" || req.ContentType != models.ContentTypeArticle ||
		req.Tone != "casual" || req.WordCount != 800 || len(req.Keywords) != 2 {
		t.Errorf("request not passed through: %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.4 {
		t.Errorf("temperature: got %v, want 0.4", req.Temperature)
	}

	body := decode(t, rr)
	if body["message"] != "Content generated successfully" {
		t.Errorf("message: got %v", body["message"])
	}
	item, _ := body["content"].(map[string]any)
	if item["user_id"] != env.owner.UserID.String() {
		t.Errorf("owner: got %v, want %s", item["user_id"], env.owner.UserID)
	}
	stats, _ := body["generation_stats"].(map[string]any)
	for _, key := range []string{"tokens_used", "model", "cost_estimate", "word_count", "reading_time"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("missing generation_stats field %q", key)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	providerErr := &ai.Failure{Op: ai.OpArticle, Err: errors.New("upstream 503")}

	tests := []struct {
		name       string
		dev        bool
		err        error
		wantCode   int
		wantMsg    string
		wantDetail string
	}{
		{
			name:     "validation",
			err:      &generation.ValidationError{Fields: map[string][]string{"topic": {"The topic field is required."}}},
			wantCode: http.StatusUnprocessableEntity,
			wantMsg:  "Validation failed",
		},
		{
			name:     "provider failure hides detail in production",
			err:      fmt.Errorf("%w: %w", generation.ErrGenerationFailed, providerErr),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "Content generation failed",
		},
		{
			name:       "provider failure shows detail in development",
			dev:        true,
			err:        fmt.Errorf("%w: %w", generation.ErrGenerationFailed, providerErr),
			wantCode:   http.StatusInternalServerError,
			wantMsg:    "Content generation failed",
			wantDetail: "upstream 503",
		},
		{
			name:     "persistence",
			err:      fmt.Errorf("%w: %w", generation.ErrPersistence, errBoom),
			wantCode: http.StatusInternalServerError,
			wantMsg:  "Failed to save generated content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.dev)
			env.pipeline.genErr = tt.err

			rr := serve(t, http.MethodPost, "/content/generate", "/content/generate", env.handler.Generate, env.owner,
				map[string]any{"topic": "whatever topic"})
			if rr.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			body := decode(t, rr)
			if body["message"] != tt.wantMsg {
				t.Errorf("message: got %v, want %q", body["message"], tt.wantMsg)
			}
			if tt.wantCode == http.StatusUnprocessableEntity {
				errs, _ := body["errors"].(map[string]any)
				if _, ok := errs["topic"]; !ok {
					t.Errorf("errors: got %v", body["errors"])
				}
				return
			}
			got, has := body["error"]
			if tt.wantDetail == "" && has {
				t.Errorf("unexpected error detail %v", got)
			}
			if tt.wantDetail != "" && got != tt.wantDetail {
				t.Errorf("error detail: got %v, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestGenerateRejectsBadBody(t *testing.T) {
	env := newTestEnv(false)
	rr := serve(t, http.MethodPost, "/content/generate", "/content/generate", env.handler.Generate, env.owner, "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
	if len(env.repo.items) != 0 {
		t.Error("nothing should be stored for a malformed body")
	}
}

func TestBulkGenerate(t *testing.T) {
	env := newTestEnv(false)
	topics := []string{"First topic", "Second topic", "Third topic"}

	rr := serve(t, http.MethodPost, "/content/bulk-generate", "/content/bulk-generate", env.handler.BulkGenerate, env.owner,
		map[string]any{"topics": topics, "tone": "formal"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	if env.pipeline.lastBulk.Tone != "formal" || len(env.pipeline.lastBulk.Topics) != 3 {
		t.Errorf("bulk request not passed through: %+v", env.pipeline.lastBulk)
	}

	body := decode(t, rr)
	if body["message"] != "Bulk content generation completed" {
		t.Errorf("message: got %v", body["message"])
	}
	content, _ := body["content"].([]any)
	if len(content) != 2 {
		t.Errorf("content: got %d items, want 2", len(content))
	}
	results, _ := body["results"].([]any)
	if len(results) != len(topics) {
		t.Fatalf("results: got %d, want %d", len(results), len(topics))
	}
	for i, raw := range results {
		res := raw.(map[string]any)
		if res["topic"] != topics[i] {
			t.Errorf("results[%d].topic: got %v, want %q", i, res["topic"], topics[i])
		}
		wantSuccess := i%2 == 0
		if res["success"] != wantSuccess {
			t.Errorf("results[%d].success: got %v, want %v", i, res["success"], wantSuccess)
		}
		if _, hasID := res["content_id"]; hasID != wantSuccess {
			t.Errorf("results[%d].content_id present=%v", i, hasID)
		}
		if _, hasErr := res["error"]; hasErr == wantSuccess {
			t.Errorf("results[%d].error present=%v", i, hasErr)
		}
	}
	stats, _ := body["generation_stats"].(map[string]any)
	if stats["successful_generations"] != float64(2) || stats["failed_generations"] != float64(1) {
		t.Errorf("generation_stats: got %v", stats)
	}
}

func TestBulkGenerateValidation(t *testing.T) {
	env := newTestEnv(false)
	env.pipeline.bulkErr = &generation.ValidationError{Fields: map[string][]string{
		"topics": {"The topics field must not have more than 10 items."},
	}}

	rr := serve(t, http.MethodPost, "/content/bulk-generate", "/content/bulk-generate", env.handler.BulkGenerate, env.owner,
		map[string]any{"topics": []string{"a topic"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rr.Code)
	}
}

func TestAnalyzeQuality(t *testing.T) {
	env := newTestEnv(true)
	c := seedItem(env, env.owner.UserID, "Review Me", models.ContentStatusDraft)
	path := "/content/" + c.ID.String() + "/analyze-quality"
	pattern := "/content/{id}/analyze-quality"

	rr := serve(t, http.MethodPost, pattern, path, env.handler.AnalyzeQuality, env.owner, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["message"] != "Content quality analyzed successfully" {
		t.Errorf("message: got %v", body["message"])
	}
	qa, _ := body["analysis"].(map[string]any)
	if qa["analysis"] != "Solid draft." || qa["tokens_used"] != float64(321) {
		t.Errorf("analysis: got %v", qa)
	}

	rr = serve(t, http.MethodPost, pattern, path, env.handler.AnalyzeQuality, &session.Data{UserID: uuid.New()}, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("stranger: got %d, want 404", rr.Code)
	}

	env.pipeline.qaErr = fmt.Errorf("%w: %w", generation.ErrAnalysisFailed,
		&ai.Failure{Op: ai.OpQuality, Err: errors.New("rate limited")})
	rr = serve(t, http.MethodPost, pattern, path, env.handler.AnalyzeQuality, env.owner, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("failure: got %d, want 500", rr.Code)
	}
	body = decode(t, rr)
	if body["message"] != "Quality analysis failed" || body["error"] != "rate limited" {
		t.Errorf("failure body: got %v", body)
	}
}

func TestModels(t *testing.T) {
	env := newTestEnv(false)
	env.models.list = []ai.ModelInfo{
		{ID: "gpt-4-turbo-preview", OwnedBy: "openai"},
		{ID: "gpt-3.5-turbo", OwnedBy: "openai"},
	}
	cache := &passthroughCache{}
	env.handler = NewContent(env.repo, env.pipeline, env.models, cache, false)

	rr := serve(t, http.MethodGet, "/content/models", "/content/models", env.handler.Models, env.owner, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	body := decode(t, rr)
	if body["success"] != true || body["count"] != float64(2) {
		t.Errorf("body: got %v", body)
	}
	if cache.provider != "openai" {
		t.Errorf("cache keyed by %q, want openai", cache.provider)
	}
	if env.models.calls != 1 {
		t.Errorf("ListModels calls: got %d, want 1", env.models.calls)
	}
}

func TestModelsRefresh(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/content/models", nil},
		{"/content/models?refresh=true", []string{"openai"}},
		{"/content/models?refresh=1", []string{"openai"}},
		{"/content/models?refresh=false", nil},
		{"/content/models?refresh=bogus", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			env := newTestEnv(false)
			cache := &passthroughCache{}
			env.handler = NewContent(env.repo, env.pipeline, env.models, cache, false)

			rr := serve(t, http.MethodGet, "/content/models", tt.path, env.handler.Models, env.owner, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rr.Code)
			}
			if len(cache.invalidated) != len(tt.want) {
				t.Fatalf("invalidated: got %v, want %v", cache.invalidated, tt.want)
			}
			for i := range tt.want {
				if cache.invalidated[i] != tt.want[i] {
					t.Errorf("invalidated[%d]: got %q, want %q", i, cache.invalidated[i], tt.want[i])
				}
			}
		})
	}
}

func TestModelsEmptyAndFailure(t *testing.T) {
	env := newTestEnv(false)

	rr := serve(t, http.MethodGet, "/content/models", "/content/models", env.handler.Models, env.owner, nil)
	body := decode(t, rr)
	if models, ok := body["models"].([]any); !ok || len(models) != 0 {
		t.Errorf("empty list should encode as [], got %v", body["models"])
	}

	env.models.err = errBoom
	rr = serve(t, http.MethodGet, "/content/models", "/content/models", env.handler.Models, env.owner, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if decode(t, rr)["message"] != "Failed to fetch available models" {
		t.Error("unexpected failure message")
	}
}
