package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autoblogger/internal/metrics"
	"autoblogger/internal/session"
)

func TestMemoryWindowTake(t *testing.T) {
	m := NewMemoryWindow()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	steps := []struct {
		key       string
		at        time.Duration
		wantOK    bool
		wantRetry time.Duration
	}{
		{"a", 0, true, 0},
		{"a", time.Second, true, 0},
		{"a", 2 * time.Second, true, 0},
		{"a", 3 * time.Second, false, 7 * time.Second},
		{"b", 3 * time.Second, true, 0},
		// The hit at 0 is outside the window at exactly 10s.
		{"a", 10 * time.Second, true, 0},
		{"a", 10500 * time.Millisecond, false, 500 * time.Millisecond},
	}

	for _, s := range steps {
		ok, retry, err := m.Take(ctx, s.key, 3, 10*time.Second, start.Add(s.at))
		if err != nil {
			t.Fatalf("Take(%s, %v): %v", s.key, s.at, err)
		}
		if ok != s.wantOK || retry != s.wantRetry {
			t.Errorf("Take(%s, %v): got (%v, %v), want (%v, %v)", s.key, s.at, ok, retry, s.wantOK, s.wantRetry)
		}
	}
}

func TestMemoryWindowSweepsIdleKeys(t *testing.T) {
	m := NewMemoryWindow()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	m.Take(ctx, "idle", 5, window, start)
	m.Take(ctx, "busy", 5, window, start)
	m.Take(ctx, "busy", 5, window, start.Add(50*time.Second))
	if n := m.Len(); n != 2 {
		t.Fatalf("tracked keys: got %d, want 2", n)
	}

	// A take one window after the last sweep drops keys with no live hits.
	m.Take(ctx, "new", 5, window, start.Add(61*time.Second))
	if n := m.Len(); n != 2 {
		t.Errorf("tracked keys after sweep: got %d, want 2 (busy, new)", n)
	}
	if _, ok := m.hits["idle"]; ok {
		t.Error("idle key should have been swept")
	}
}

// fakeClock is a settable time source for RateLimiter.now.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRateLimiterMiddleware(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(2, time.Hour, nil).WithMessage("Too many generation requests.")
	rl.now = clock.now

	calls := 0
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/content/generate", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := send("192.0.2.7:4000"); rr.Code != http.StatusCreated {
			t.Fatalf("request %d: got %d, want 201", i+1, rr.Code)
		}
	}

	clock.t = clock.t.Add(15*time.Minute + 500*time.Millisecond)
	before := counterValue(t, metrics.HTTPRateLimited)
	rr := send("192.0.2.7:4001")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d, want 429", rr.Code)
	}
	if got := counterValue(t, metrics.HTTPRateLimited) - before; got != 1 {
		t.Errorf("rate_limited_total delta: got %v, want 1", got)
	}
	// 44m59.5s remain; Retry-After rounds up.
	if got := rr.Header().Get("Retry-After"); got != "2700" {
		t.Errorf("Retry-After: got %q, want 2700", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"message":"Too many generation requests."`) {
		t.Errorf("body: got %q", rr.Body.String())
	}

	if rr := send("192.0.2.8:4000"); rr.Code != http.StatusCreated {
		t.Errorf("other client: got %d, want 201", rr.Code)
	}
	if calls != 3 {
		t.Errorf("handler calls: got %d, want 3", calls)
	}

	clock.t = clock.t.Add(45 * time.Minute)
	if rr := send("192.0.2.7:4002"); rr.Code != http.StatusCreated {
		t.Errorf("after the window: got %d, want 201", rr.Code)
	}
}

type failingWindow struct{}

func (failingWindow) Take(context.Context, string, int, time.Duration, time.Time) (bool, time.Duration, error) {
	return false, 0, errors.New("valkey down")
}

func TestRateLimiterStoreFailureLetsRequestsThrough(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour, nil).WithStore(failingWindow{})
	next, called := okHandler()

	rr := httptest.NewRecorder()
	rl.Middleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	if !*called || rr.Code != http.StatusOK {
		t.Errorf("got called=%v status=%d, want the request served", *called, rr.Code)
	}
}

// recordingWindow captures the keys a limiter counts against.
type recordingWindow struct{ keys []string }

func (w *recordingWindow) Take(_ context.Context, key string, _ int, _ time.Duration, _ time.Time) (bool, time.Duration, error) {
	w.keys = append(w.keys, key)
	return true, 0, nil
}

func TestRateLimiterPerUser(t *testing.T) {
	store := &recordingWindow{}
	rl := NewRateLimiter(1, time.Hour, ByUserOrIP).WithStore(store)
	next, _ := okHandler()
	h := rl.Middleware(next)

	users := []*session.Data{newTestSession("user"), newTestSession("user")}
	for _, sess := range users {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "172.16.0.1:5555"
		h.ServeHTTP(httptest.NewRecorder(), req.WithContext(WithSession(req.Context(), sess)))
	}
	anon := httptest.NewRequest(http.MethodPost, "/", nil)
	anon.RemoteAddr = "172.16.0.1:5555"
	h.ServeHTTP(httptest.NewRecorder(), anon)

	want := []string{"user:" + users[0].UserID.String(), "user:" + users[1].UserID.String(), "ip:172.16.0.1"}
	if len(store.keys) != len(want) {
		t.Fatalf("keys: got %v, want %v", store.keys, want)
	}
	for i := range want {
		if store.keys[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, store.keys[i], want[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded chain uses leftmost", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.5"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 203.0.113.6 "}, "10.0.0.2:80", "203.0.113.6"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "10.0.0.2:80", "203.0.113.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.8", "X-Real-IP": "203.0.113.9"}, "10.0.0.2:80", "203.0.113.8"},
		{"peer v4", nil, "198.51.100.1:1234", "198.51.100.1"},
		{"peer v6", nil, "[2001:db8::1]:1234", "2001:db8::1"},
		{"peer without port", nil, "198.51.100.2", "198.51.100.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
