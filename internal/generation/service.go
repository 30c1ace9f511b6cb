// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generation runs the content pipeline: one primary generation
// call, title extraction, optional enrichment (meta description and
// keywords), word count and cost derivation, and persistence of a draft
// item. Bulk requests run the same steps per topic in order.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"autoblogger/internal/ai"
	"autoblogger/internal/cost"
	"autoblogger/internal/markdown"
	"autoblogger/internal/metrics"
	"autoblogger/internal/models"
)

// Pipeline errors. Callers match them with errors.Is.
var (
	ErrGenerationFailed = errors.New("content generation failed")
	ErrPersistence      = errors.New("content could not be saved")
	ErrAnalysisFailed   = errors.New("content quality analysis failed")
)

// Generator is the subset of the generation client the pipeline calls.
// *ai.Client satisfies it.
type Generator interface {
	GenerateArticle(ctx context.Context, topic string, opts ai.ArticleOptions) (*ai.Article, error)
	GenerateMetaDescription(ctx context.Context, body string, maxLength int) (*ai.MetaDescription, error)
	ExtractKeywords(ctx context.Context, body string, count int) (*ai.Keywords, error)
	AnalyzeQuality(ctx context.Context, body string) (*ai.Quality, error)
}

// Repository persists content items. *store.ContentStore satisfies it.
type Repository interface {
	Create(ctx context.Context, c *models.Content) error
	CreateBatch(ctx context.Context, items []*models.Content) error
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Content, error)
	SetQualityAnalysis(ctx context.Context, ownerID, id uuid.UUID, qa *models.QualityAnalysis) error
}

// Config holds the pipeline settings injected at construction.
type Config struct {
	// Timeout bounds one pipeline invocation (one topic in bulk mode).
	Timeout time.Duration
	// PersistTimeout bounds the store write, which runs even after the
	// caller's context is done.
	PersistTimeout time.Duration
	// BulkDelay is the pause between two bulk topics.
	BulkDelay          time.Duration
	Limits             Limits
	DefaultModel       string
	DefaultTemperature float64
	MetaLength         int
	KeywordCount       int
}

// Stats summarises a single generation.
type Stats struct {
	TokensUsed   int           `json:"tokens_used"`
	Model        string        `json:"model"`
	CostEstimate cost.Estimate `json:"cost_estimate"`
	WordCount    int           `json:"word_count"`
	ReadingTime  int           `json:"reading_time"`
}

// Result is a persisted item and its generation stats.
type Result struct {
	Content *models.Content
	Stats   Stats
}

// Service runs the content pipeline.
type Service struct {
	gen       Generator
	repo      Repository
	estimator *cost.Estimator
	cfg       Config
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewService creates a pipeline service.
func NewService(gen Generator, repo Repository, estimator *cost.Estimator, cfg Config, logger *slog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = ai.DefaultArticleModel
	}
	if cfg.MetaLength <= 0 {
		cfg.MetaLength = ai.DefaultMetaLength
	}
	if cfg.KeywordCount <= 0 {
		cfg.KeywordCount = ai.DefaultKeywordCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gen:       gen,
		repo:      repo,
		estimator: estimator,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Generate validates req, runs the pipeline and persists a draft item.
// A *ValidationError is returned before any external call. A primary
// generation failure wraps ErrGenerationFailed and nothing is stored.
// Enrichment failures are logged and leave the field empty.
func (s *Service) Generate(ctx context.Context, ownerID uuid.UUID, req Request) (*Result, error) {
	if err := s.cfg.Limits.Validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	opts := normalize(req.Options, s.cfg.DefaultModel, s.cfg.DefaultTemperature)

	item, estimate, err := s.produce(ctx, ownerID, req.Topic, req.Title, opts)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("single", metrics.StatusFailure).Inc()
		s.logger.Error("content generation failed",
			"owner_id", ownerID,
			"topic", req.Topic,
			"error", err,
		)
		return nil, err
	}

	if err := s.persist(ctx, func(ctx context.Context) error { return s.repo.Create(ctx, item) }); err != nil {
		metrics.GenerationTotal.WithLabelValues("single", metrics.StatusFailure).Inc()
		s.logger.Error("content generation failed",
			"owner_id", ownerID,
			"topic", req.Topic,
			"tokens_used", item.TokensUsed,
			"cost", item.GenerationCost,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	metrics.GenerationTotal.WithLabelValues("single", metrics.StatusSuccess).Inc()
	metrics.GenerationDuration.WithLabelValues(item.AIModel).Observe(time.Since(start).Seconds())
	s.logger.Info("content generated successfully",
		"owner_id", ownerID,
		"content_id", item.ID,
		"topic", req.Topic,
		"tokens_used", item.TokensUsed,
		"cost", item.GenerationCost,
	)

	return &Result{
		Content: item,
		Stats: Stats{
			TokensUsed:   item.TokensUsed,
			Model:        item.AIModel,
			CostEstimate: estimate,
			WordCount:    item.WordCount,
			ReadingTime:  item.ReadingTime(),
		},
	}, nil
}

// produce runs steps up to persistence for one topic under a single
// deadline. The returned item is not yet stored.
func (s *Service) produce(ctx context.Context, ownerID uuid.UUID, topic, title string, opts models.GenerationOptions) (*models.Content, cost.Estimate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	temperature := opts.Temperature
	article, err := s.gen.GenerateArticle(ctx, topic, ai.ArticleOptions{
		ContentType:    string(opts.ContentType),
		WordCount:      opts.WordCount,
		Tone:           string(opts.Tone),
		TargetAudience: opts.TargetAudience,
		Keywords:       opts.Keywords,
		Model:          opts.Model,
		Temperature:    &temperature,
	})
	if err != nil {
		return nil, cost.Estimate{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	if title == "" {
		title = ExtractTitle(article.Content)
	}

	item := &models.Content{
		OwnerID:           ownerID,
		Title:             title,
		Topic:             topic,
		Body:              article.Content,
		Keywords:          opts.Keywords,
		Status:            models.ContentStatusDraft,
		ContentType:       opts.ContentType,
		Tone:              opts.Tone,
		TargetAudience:    opts.TargetAudience,
		TokensUsed:        article.TokensUsed,
		AIModel:           article.Model,
		GenerationOptions: opts,
	}
	if item.AIModel == "" {
		item.AIModel = opts.Model
	}

	s.enrich(ctx, ownerID, topic, item)

	item.WordCount = markdown.WordCount(item.Body)
	estimate := s.estimator.Estimate(item.TokensUsed, item.AIModel)
	item.GenerationCost = estimate.TotalCost

	metrics.TokensUsed.WithLabelValues(item.AIModel).Add(float64(item.TokensUsed))
	metrics.GenerationCost.WithLabelValues(item.AIModel).Add(estimate.TotalCost)

	return item, estimate, nil
}

// enrich attaches the meta description and, when the caller gave none,
// extracted keywords. Failures and an expired deadline leave the fields
// empty.
func (s *Service) enrich(ctx context.Context, ownerID uuid.UUID, topic string, item *models.Content) {
	if ctx.Err() != nil {
		s.skipEnrichment(ownerID, topic, "meta_description", ctx.Err())
	} else if meta, err := s.gen.GenerateMetaDescription(ctx, item.Body, s.cfg.MetaLength); err != nil {
		s.enrichmentFailed(ownerID, topic, "meta_description", err)
	} else {
		item.MetaDescription = &meta.MetaDescription
	}

	if len(item.Keywords) > 0 {
		return
	}
	item.Keywords = []string{}
	if ctx.Err() != nil {
		s.skipEnrichment(ownerID, topic, "keywords", ctx.Err())
		return
	}
	kw, err := s.gen.ExtractKeywords(ctx, item.Body, s.cfg.KeywordCount)
	if err != nil {
		s.enrichmentFailed(ownerID, topic, "keywords", err)
		return
	}
	item.Keywords = kw.Keywords
}

func (s *Service) enrichmentFailed(ownerID uuid.UUID, topic, step string, err error) {
	metrics.EnrichmentFailures.WithLabelValues(step).Inc()
	s.logger.Warn("content enrichment failed",
		"owner_id", ownerID,
		"topic", topic,
		"step", step,
		"error", err,
	)
}

func (s *Service) skipEnrichment(ownerID uuid.UUID, topic, step string, err error) {
	metrics.EnrichmentFailures.WithLabelValues(step).Inc()
	s.logger.Warn("content enrichment skipped",
		"owner_id", ownerID,
		"topic", topic,
		"step", step,
		"error", err,
	)
}

// persist runs a store write detached from the caller's cancellation so
// a paid-for generation is not lost to a dropped connection.
func (s *Service) persist(ctx context.Context, write func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()
	return write(ctx)
}

// AnalyzeQuality runs a quality analysis on an owned item and stores the
// result. Store errors (including not-found) are returned unchanged.
func (s *Service) AnalyzeQuality(ctx context.Context, ownerID, id uuid.UUID) (*models.QualityAnalysis, error) {
	item, err := s.repo.FindForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	actx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	q, err := s.gen.AnalyzeQuality(actx, item.Body)
	if err != nil {
		s.logger.Error("content quality analysis failed",
			"owner_id", ownerID,
			"content_id", id,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	qa := &models.QualityAnalysis{
		Analysis:   q.Analysis,
		TokensUsed: q.TokensUsed,
		AnalyzedAt: q.AnalyzedAt,
	}
	if err := s.persist(ctx, func(ctx context.Context) error {
		return s.repo.SetQualityAnalysis(ctx, ownerID, id, qa)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("content quality analyzed",
		"owner_id", ownerID,
		"content_id", id,
		"tokens_used", q.TokensUsed,
	)
	return qa, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
