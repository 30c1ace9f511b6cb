// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"autoblogger/internal/metrics"
)

func TestRecoverer(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string", "something went wrong"},
		{"integer", 42},
		{"error", errors.New("nil map write")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			before := counterValue(t, metrics.HTTPPanicsRecovered)

			h := Recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(tt.value)
			}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/content/generate", nil))

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status: got %d, want 500", rr.Code)
			}
			if body := rr.Body.String(); !strings.Contains(body, `"message":"Internal Server Error"`) {
				t.Errorf("body: got %q, want a JSON message", body)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type: got %q, want application/json", ct)
			}
			if got := counterValue(t, metrics.HTTPPanicsRecovered) - before; got != 1 {
				t.Errorf("panics counted: got %v, want 1", got)
			}
			out := logs.String()
			if !strings.Contains(out, "panic recovered") || !strings.Contains(out, "path=/api/v1/content/generate") {
				t.Errorf("log record: got %q", out)
			}
		})
	}
}

func TestRecovererAfterResponseStarted(t *testing.T) {
	var logs bytes.Buffer
	h := Recoverer(slog.New(slog.NewTextHandler(&logs, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"partial":`))
		panic("mid-write")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("status: got %d, want the already written 201", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "Internal Server Error") {
		t.Errorf("body should not get a second payload, got %q", rr.Body.String())
	}
	if !strings.Contains(logs.String(), "response_started=true") {
		t.Errorf("log record should note the started response: %q", logs.String())
	}
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	h := Recoverer(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("ErrAbortHandler should propagate")
}

func TestRecovererPassThrough(t *testing.T) {
	h := Recoverer(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "test-value")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/content/1", nil))

	if rr.Code != http.StatusAccepted || rr.Body.String() != "ok" {
		t.Errorf("got %d %q, want 202 \"ok\"", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Custom"); got != "test-value" {
		t.Errorf("X-Custom: got %q, want %q", got, "test-value")
	}
}
