// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// autoblogger API. Routes live under /api/v1; health and metrics sit at
// the top level.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autoblogger/internal/handlers"
	"autoblogger/internal/middleware"
)

// healthTimeout bounds each dependency check.
const healthTimeout = 2 * time.Second

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Deps are the collaborators the router wires together.
type Deps struct {
	Logger   *slog.Logger
	Sessions middleware.SessionLoader
	Auth     *handlers.Auth
	Content  *handlers.Content

	// HSTS adds Strict-Transport-Security to every response.
	HSTS bool

	// Limiter throttles the generation endpoints. Nil disables it.
	Limiter *middleware.RateLimiter

	// Checks are reported by the health endpoint, keyed by name.
	Checks map[string]Check
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders(d.HSTS))
	r.Use(middleware.LoadSession(d.Sessions))

	r.Get("/api/health", healthHandler(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", d.Auth.Login)
		r.Post("/auth/logout", d.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/auth/me", d.Auth.Me)

			r.Route("/content", func(r chi.Router) {
				r.Get("/", d.Content.List)
				r.Get("/stats", d.Content.Stats)
				r.Get("/models", d.Content.Models)

				r.Group(func(r chi.Router) {
					if d.Limiter != nil {
						r.Use(d.Limiter.Middleware)
					}
					r.Post("/generate", d.Content.Generate)
					r.Post("/bulk-generate", d.Content.BulkGenerate)
				})

				r.Get("/{id}", d.Content.Show)
				r.Put("/{id}", d.Content.Update)
				r.Delete("/{id}", d.Content.Delete)
				r.Post("/{id}/analyze-quality", d.Content.AnalyzeQuality)
			})
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler answers 200 when every check passes and 503 otherwise.
func healthHandler(checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK

		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := checks[name](ctx)
			cancel()
			if err != nil {
				slog.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}
