// Package session provides Valkey-backed login sessions for the API.
// The cookie carries a random token; Valkey stores the session payload as
// JSON under a hash of that token, with a sliding TTL.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the client.
	CookieName = "ab_session"

	// DefaultTTL is how long an idle session lives before it expires.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"

	// tokenBytes is the size of the random cookie token (64 hex chars).
	tokenBytes = 32
)

// Data is the session payload: the signed-in user's identity.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Store creates, loads and destroys sessions.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store on client with DefaultTTL. secure marks
// the cookie Secure, for deployments served over TLS.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, ttl: DefaultTTL, secure: secure}
}

// WithTTL sets the idle lifetime of new and refreshed sessions.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	s.ttl = ttl
	return s
}

// Create stores data under a fresh token and sets the session cookie.
// It returns the token.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}

	data.CreatedAt = time.Now().UTC()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, storageKey(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, s.cookie(token, int(s.ttl.Seconds())))
	return token, nil
}

// Get loads the session named by the request cookie and extends its TTL.
// A request without a well-formed cookie, or whose session has expired,
// yields nil data and no error.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	token, ok := requestToken(r)
	if !ok {
		return nil, nil
	}

	payload, err := s.client.GetEx(ctx, storageKey(token), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Destroy expires the cookie and deletes the stored session.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token, ok := requestToken(r)
	if !ok {
		return nil
	}

	http.SetCookie(w, s.cookie("", -1))
	if err := s.client.Del(ctx, storageKey(token)).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// requestToken returns the cookie token if it has the shape newToken
// produces.
func requestToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || len(c.Value) != 2*tokenBytes {
		return "", false
	}
	if _, err := hex.DecodeString(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// storageKey is the Valkey key for token. Only the hash is stored.
func storageKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
