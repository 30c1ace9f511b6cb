// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"autoblogger/internal/metrics"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// WindowStore records hits in a sliding window. Take records a hit for key
// at now unless limit hits already fall inside the window ending at now.
// When the hit is refused, retry is the time until the oldest one leaves
// the window.
type WindowStore interface {
	Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (ok bool, retry time.Duration, err error)
}

// RateLimiter throttles requests per key with a sliding window.
type RateLimiter struct {
	store   WindowStore
	limit   int
	window  time.Duration
	key     KeyFunc
	message string
	now     func() time.Time
}

// NewRateLimiter allows limit requests per window for each key, counted in
// process memory. A nil key counts by client IP.
func NewRateLimiter(limit int, window time.Duration, key KeyFunc) *RateLimiter {
	if key == nil {
		key = clientIP
	}
	return &RateLimiter{
		store:   NewMemoryWindow(),
		limit:   limit,
		window:  window,
		key:     key,
		message: "Too Many Requests",
		now:     time.Now,
	}
}

// WithMessage sets the message returned in the 429 body.
func (rl *RateLimiter) WithMessage(msg string) *RateLimiter {
	rl.message = msg
	return rl
}

// WithStore counts hits in store instead of process memory, so several
// instances can share one budget.
func (rl *RateLimiter) WithStore(store WindowStore) *RateLimiter {
	rl.store = store
	return rl
}

// Middleware answers 429 with a Retry-After header once a key exceeds its
// limit. If the store fails the request is let through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		ok, retry, err := rl.store.Take(r.Context(), key, rl.limit, rl.window, rl.now())
		if err != nil {
			slog.Warn("rate limit check failed", "error", err, "key", key)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			metrics.HTTPRateLimited.Inc()
			secs := int((retry + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
			writeMessage(w, http.StatusTooManyRequests, rl.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemoryWindow is an in-process WindowStore. Idle keys are swept during
// Take once per window.
type MemoryWindow struct {
	mu    sync.Mutex
	hits  map[string][]time.Time
	swept time.Time
}

// NewMemoryWindow returns an empty MemoryWindow.
func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{hits: make(map[string][]time.Time)}
}

// Take implements WindowStore.
func (m *MemoryWindow) Take(_ context.Context, key string, limit int, window time.Duration, now time.Time) (bool, time.Duration, error) {
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.swept) >= window {
		m.sweep(cutoff)
		m.swept = now
	}

	live := trimBefore(m.hits[key], cutoff)
	if len(live) >= limit {
		m.hits[key] = live
		return false, live[0].Sub(cutoff), nil
	}
	m.hits[key] = append(live, now)
	return true, 0, nil
}

// Len reports how many keys are tracked.
func (m *MemoryWindow) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}

func (m *MemoryWindow) sweep(cutoff time.Time) {
	for key, ts := range m.hits {
		if len(trimBefore(ts, cutoff)) == 0 {
			delete(m.hits, key)
		}
	}
}

// trimBefore drops the leading timestamps at or before cutoff. ts is in
// ascending order.
func trimBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

// ByUserOrIP counts authenticated requests per user and anonymous ones per
// client IP.
func ByUserOrIP(r *http.Request) string {
	if sess := SessionFromCtx(r.Context()); sess != nil {
		return "user:" + sess.UserID.String()
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers the proxy headers, then the peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
