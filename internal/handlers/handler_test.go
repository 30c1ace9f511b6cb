// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory fakes and request helpers shared by
// the handler tests.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"autoblogger/internal/ai"
	"autoblogger/internal/cache"
	"autoblogger/internal/generation"
	"autoblogger/internal/markdown"
	"autoblogger/internal/middleware"
	"autoblogger/internal/models"
	"autoblogger/internal/session"
	"autoblogger/internal/store"
)

// fakeRepo is an in-memory ContentRepo.
type fakeRepo struct {
	mu    sync.Mutex
	items []*models.Content
	err   error
}

func (f *fakeRepo) add(c *models.Content) *models.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	if c.Status == "" {
		c.Status = models.ContentStatusDraft
	}
	c.CreatedAt = time.Now().Add(time.Duration(len(f.items)) * time.Second)
	f.items = append(f.items, c)
	return c
}

func (f *fakeRepo) find(ownerID, id uuid.UUID) *models.Content {
	for _, c := range f.items {
		if c.ID == id && c.OwnerID == ownerID {
			return c
		}
	}
	return nil
}

func (f *fakeRepo) FindForOwner(_ context.Context, ownerID, id uuid.UUID) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if c := f.find(ownerID, id); c != nil {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, ownerID uuid.UUID, flt models.ContentFilter) (*store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var matched []models.Content
	for _, c := range f.items {
		if c.OwnerID != ownerID {
			continue
		}
		if flt.Status != "" && c.Status != flt.Status {
			continue
		}
		if flt.ContentType != "" && c.ContentType != flt.ContentType {
			continue
		}
		if flt.Search != "" && !strings.Contains(strings.ToLower(c.Title+c.Topic+c.Body), strings.ToLower(flt.Search)) {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page, perPage := max(flt.Page, 1), flt.PerPage
	if perPage < 1 {
		perPage = store.DefaultPerPage
	}
	perPage = min(perPage, store.MaxPerPage)
	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	return &store.Page{Items: matched[start:end], Total: len(matched), Page: page, PerPage: perPage}, nil
}

func (f *fakeRepo) Update(_ context.Context, ownerID, id uuid.UUID, p models.ContentPatch) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.find(ownerID, id)
	if c == nil {
		return nil, store.ErrNotFound
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Body != nil {
		c.Body = *p.Body
		c.WordCount = markdown.WordCount(c.Body)
	}
	if p.MetaDescription != nil {
		c.MetaDescription = p.MetaDescription
	}
	if p.KeywordsSet {
		c.Keywords = p.Keywords
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	return c, nil
}

func (f *fakeRepo) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id && c.OwnerID == ownerID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeRepo) Stats(_ context.Context, ownerID uuid.UUID) (*models.ContentStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	st := &models.ContentStats{ContentByType: map[string]int{}, ContentByMonth: map[string]int{}}
	for _, c := range f.items {
		if c.OwnerID != ownerID {
			continue
		}
		st.TotalContent++
		switch c.Status {
		case models.ContentStatusPublished:
			st.PublishedContent++
		case models.ContentStatusDraft:
			st.DraftContent++
		case models.ContentStatusArchived:
			st.ArchivedContent++
		}
		st.TotalWords += c.WordCount
		st.TotalTokensUsed += c.TokensUsed
		st.TotalCost += c.GenerationCost
		st.ContentByType[string(c.ContentType)]++
		st.ContentByMonth[c.CreatedAt.Format("2006-01")]++
	}
	return st, nil
}

// fakePipeline records requests and returns canned results.
type fakePipeline struct {
	repo *fakeRepo

	genErr  error
	bulkErr error
	qaErr   error

	lastRequest generation.Request
	lastBulk    generation.BulkRequest
}

func (p *fakePipeline) Generate(_ context.Context, ownerID uuid.UUID, req generation.Request) (*generation.Result, error) {
	p.lastRequest = req
	if p.genErr != nil {
		return nil, p.genErr
	}
	c := p.repo.add(&models.Content{
		OwnerID:     ownerID,
		Title:       "Generated " + req.Topic,
		Slug:        "generated",
		Topic:       req.Topic,
		Body:        "# Generated\n\nBody words here.",
		ContentType: models.ContentTypeBlogPost,
		WordCount:   4,
		TokensUsed:  1500,
	})
	return &generation.Result{Content: c, Stats: generation.Stats{TokensUsed: 1500, Model: "gpt-4-turbo-preview", WordCount: 4, ReadingTime: 1}}, nil
}

func (p *fakePipeline) BulkGenerate(_ context.Context, ownerID uuid.UUID, req generation.BulkRequest) (*generation.BulkResult, error) {
	p.lastBulk = req
	if p.bulkErr != nil {
		return nil, p.bulkErr
	}
	res := &generation.BulkResult{Stats: generation.BulkStats{TotalTopics: len(req.Topics)}}
	for i, topic := range req.Topics {
		if i%2 == 1 {
			res.Outcomes = append(res.Outcomes, generation.TopicOutcome{Topic: topic, Error: "Content generation failed: boom"})
			res.Stats.FailedGenerations++
			continue
		}
		c := p.repo.add(&models.Content{OwnerID: ownerID, Title: topic, Topic: topic, Body: "text"})
		id := c.ID
		res.Content = append(res.Content, c)
		res.Outcomes = append(res.Outcomes, generation.TopicOutcome{Topic: topic, Success: true, ContentID: &id})
		res.Stats.SuccessfulGenerations++
	}
	return res, nil
}

func (p *fakePipeline) AnalyzeQuality(ctx context.Context, ownerID, id uuid.UUID) (*models.QualityAnalysis, error) {
	if _, err := p.repo.FindForOwner(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if p.qaErr != nil {
		return nil, p.qaErr
	}
	return &models.QualityAnalysis{Analysis: "Solid draft.", TokensUsed: 321, AnalyzedAt: time.Now()}, nil
}

// fakeModels is a ModelSource.
type fakeModels struct {
	list  []ai.ModelInfo
	err   error
	calls int
}

func (m *fakeModels) ActiveName() string { return "openai" }

func (m *fakeModels) ListModels(context.Context) ([]ai.ModelInfo, error) {
	m.calls++
	return m.list, m.err
}

// passthroughCache is a ModelCache that always fetches.
type passthroughCache struct {
	provider    string
	invalidated []string
}

func (c *passthroughCache) Get(ctx context.Context, provider string, fetch cache.FetchFunc) ([]ai.ModelInfo, error) {
	c.provider = provider
	return fetch(ctx)
}

func (c *passthroughCache) Invalidate(_ context.Context, provider string) {
	c.invalidated = append(c.invalidated, provider)
}

// fakeUsers is an in-memory Users.
type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func newFakeUsers(t *testing.T, email, password string) (*fakeUsers, *models.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: string(hash), Name: "Writer", Role: models.RoleUser}
	return &fakeUsers{users: map[string]*models.User{email: u}}, u
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// fakeSessions records created sessions and sets a cookie.
type fakeSessions struct {
	created   []*session.Data
	destroyed int
	err       error
}

func (s *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, data)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "test-session"})
	return "test-session", nil
}

func (s *fakeSessions) Destroy(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	s.destroyed++
	return nil
}

// testEnv holds a content handler and its fakes.
type testEnv struct {
	repo     *fakeRepo
	pipeline *fakePipeline
	models   *fakeModels
	handler  *Content
	owner    *session.Data
}

func newTestEnv(dev bool) *testEnv {
	repo := &fakeRepo{}
	pipeline := &fakePipeline{repo: repo}
	mods := &fakeModels{}
	return &testEnv{
		repo:     repo,
		pipeline: pipeline,
		models:   mods,
		handler:  NewContent(repo, pipeline, mods, &passthroughCache{}, dev),
		owner:    &session.Data{UserID: uuid.New(), Email: "owner@test.local", Role: "user"},
	}
}

// serve routes one request through a chi router holding a single route,
// acting as sess (nil for anonymous).
func serve(t *testing.T, method, pattern, path string, h http.HandlerFunc, sess *session.Data, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a JSON response body into a generic map.
func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

var errBoom = errors.New("boom")
