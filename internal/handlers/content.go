// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"autoblogger/internal/ai"
	"autoblogger/internal/cache"
	"autoblogger/internal/generation"
	"autoblogger/internal/markdown"
	"autoblogger/internal/models"
	"autoblogger/internal/store"
)

// ContentRepo is the owner-scoped content store. *store.ContentStore
// satisfies it.
type ContentRepo interface {
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Content, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.ContentFilter) (*store.Page, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, p models.ContentPatch) (*models.Content, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Stats(ctx context.Context, ownerID uuid.UUID) (*models.ContentStats, error)
}

// Pipeline runs generation. *generation.Service satisfies it.
type Pipeline interface {
	Generate(ctx context.Context, ownerID uuid.UUID, req generation.Request) (*generation.Result, error)
	BulkGenerate(ctx context.Context, ownerID uuid.UUID, req generation.BulkRequest) (*generation.BulkResult, error)
	AnalyzeQuality(ctx context.Context, ownerID, id uuid.UUID) (*models.QualityAnalysis, error)
}

// ModelSource lists the active provider's models. *ai.Registry satisfies it.
type ModelSource interface {
	ActiveName() string
	ListModels(ctx context.Context) ([]ai.ModelInfo, error)
}

// ModelCache memoises model listings. *cache.ModelsCache satisfies it.
type ModelCache interface {
	Get(ctx context.Context, provider string, fetch cache.FetchFunc) ([]ai.ModelInfo, error)
	Invalidate(ctx context.Context, provider string)
}

// Content groups the content API handlers.
type Content struct {
	repo     ContentRepo
	pipeline Pipeline
	models   ModelSource
	cache    ModelCache
	dev      bool
}

// NewContent creates the content handler group. dev adds internal error
// detail to failure responses.
func NewContent(repo ContentRepo, pipeline Pipeline, models ModelSource, cache ModelCache, dev bool) *Content {
	return &Content{repo: repo, pipeline: pipeline, models: models, cache: cache, dev: dev}
}

// contentResponse adds the derived read-only fields to a stored item.
type contentResponse struct {
	*models.Content
	BodyHTML     string `json:"body_html,omitempty"`
	ReadingTime  int    `json:"reading_time"`
	Excerpt      string `json:"excerpt"`
	QualityScore *int   `json:"quality_score"`
}

func present(c *models.Content) contentResponse {
	return contentResponse{
		Content:      c,
		ReadingTime:  c.ReadingTime(),
		Excerpt:      markdown.Excerpt(c.Body, excerptLen),
		QualityScore: c.QualityScore(),
	}
}

func presentAll(items []*models.Content) []contentResponse {
	out := make([]contentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, present(c))
	}
	return out
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// List returns the owner's content, newest first.
func (h *Content) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	f, errs := parseFilter(r.URL.Query().Get)
	if errs != nil {
		writeValidation(w, errs)
		return
	}

	page, err := h.repo.List(r.Context(), owner, f)
	if err != nil {
		h.serverError(w, "list content failed", err, "Failed to load content", "owner_id", owner)
		return
	}

	items := make([]contentResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, present(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content": items,
		"pagination": pagination{
			CurrentPage: page.Page,
			LastPage:    page.LastPage(),
			PerPage:     page.PerPage,
			Total:       page.Total,
		},
	})
}

// Show returns one item with its body rendered to HTML.
func (h *Content) Show(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	c, err := h.repo.FindForOwner(r.Context(), owner, id)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		h.serverError(w, "load content failed", err, "Failed to load content", "owner_id", owner, "content_id", id)
		return
	}

	resp := present(c)
	if html, err := markdown.ToHTML(c.Body); err == nil {
		resp.BodyHTML = html
	} else {
		slog.Warn("render content html failed", "content_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"content": resp})
}

// Update applies an owner edit.
func (h *Content) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch, errs := validateUpdate(req)
	if errs != nil {
		writeValidation(w, errs)
		return
	}

	c, err := h.repo.Update(r.Context(), owner, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		h.serverError(w, "update content failed", err, "Failed to update content", "owner_id", owner, "content_id", id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Content updated successfully",
		"content": present(c),
	})
}

// Delete permanently removes an item.
func (h *Content) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	err := h.repo.Delete(r.Context(), owner, id)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		h.serverError(w, "delete content failed", err, "Failed to delete content", "owner_id", owner, "content_id", id)
		return
	}

	slog.Info("content deleted", "owner_id", owner, "content_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Content deleted successfully"})
}

// Stats returns the owner's dashboard aggregates.
func (h *Content) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	st, err := h.repo.Stats(r.Context(), owner)
	if err != nil {
		h.serverError(w, "content stats failed", err, "Failed to load statistics", "owner_id", owner)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stats": st})
}

// serverError logs err and answers 500 with msg. The error text is only
// included in development.
func (h *Content) serverError(w http.ResponseWriter, logMsg string, err error, msg string, attrs ...any) {
	slog.Error(logMsg, append(attrs, "error", err)...)
	body := errorBody{Message: msg}
	if h.dev {
		body.Error = detail(err)
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

// detail returns the most specific message for err: the provider error
// for generation client failures, the full chain otherwise.
func detail(err error) string {
	var f *ai.Failure
	if errors.As(err, &f) && f.Err != nil {
		return f.Err.Error()
	}
	return err.Error()
}
