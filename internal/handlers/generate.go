// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"autoblogger/internal/ai"
	"autoblogger/internal/generation"
	"autoblogger/internal/store"
)

// Generate produces and stores one item.
func (h *Content) Generate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req generation.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.pipeline.Generate(r.Context(), owner, req)
	if err != nil {
		h.generationError(w, err, "Content generation failed", "owner_id", owner, "topic", req.Topic)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":          "Content generated successfully",
		"content":          present(res.Content),
		"generation_stats": res.Stats,
	})
}

// BulkGenerate produces one item per topic, in order.
func (h *Content) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req generation.BulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.pipeline.BulkGenerate(r.Context(), owner, req)
	if err != nil {
		h.generationError(w, err, "Bulk content generation failed", "owner_id", owner, "topics_count", len(req.Topics))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":          "Bulk content generation completed",
		"content":          presentAll(res.Content),
		"generation_stats": res.Stats,
		"results":          res.Outcomes,
	})
}

// AnalyzeQuality runs and stores a quality review of one item.
func (h *Content) AnalyzeQuality(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := contentID(w, r)
	if !ok {
		return
	}

	qa, err := h.pipeline.AnalyzeQuality(r.Context(), owner, id)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		h.generationError(w, err, "Quality analysis failed", "owner_id", owner, "content_id", id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Content quality analyzed successfully",
		"analysis": qa,
	})
}

// Models lists the active provider's models through the TTL cache.
// ?refresh=true drops the cached list first.
func (h *Content) Models(w http.ResponseWriter, r *http.Request) {
	provider := h.models.ActiveName()
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		h.cache.Invalidate(r.Context(), provider)
	}
	list, err := h.cache.Get(r.Context(), provider, h.models.ListModels)
	if err != nil {
		h.serverError(w, "list models failed", err, "Failed to fetch available models", "provider", provider)
		return
	}
	if list == nil {
		list = []ai.ModelInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"models":  list,
		"count":   len(list),
	})
}

// generationError maps pipeline errors to responses: 422 for rejected
// input, 500 with msg otherwise.
func (h *Content) generationError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	var verr *generation.ValidationError
	if errors.As(err, &verr) {
		writeValidation(w, verr.Fields)
		return
	}
	if errors.Is(err, generation.ErrPersistence) {
		msg = "Failed to save generated content"
	}
	h.serverError(w, "generation request failed", err, msg, attrs...)
}
