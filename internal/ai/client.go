// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"autoblogger/internal/cost"
)

// System personas for the generation operations.
const (
	writerPersona  = "You are an expert content writer and SEO specialist. Create high-quality, engaging, and SEO-optimized blog posts."
	seoPersona     = "You are an SEO expert. Create compelling meta descriptions that include relevant keywords and encourage clicks."
	qualityPersona = "You are a content quality expert. Analyze content for readability, SEO, engagement, and structure. Provide actionable feedback."
)

// Operation defaults.
const (
	DefaultMaxTokens       = 4000
	DefaultTemperature     = 0.7
	DefaultMetaLength      = 155
	DefaultKeywordCount    = 10
	articleTopP            = 1.0
	articlePenalty         = 0.1
	enrichmentMaxTokens    = 200
	metaTemperature        = 0.7
	keywordTemperature     = 0.3
	qualityMaxTokens       = 800
	qualityTemperature     = 0.3
	DefaultArticleModel    = "gpt-4-turbo-preview"
	DefaultEnrichmentModel = "gpt-3.5-turbo"
)

// Operation names carried by Failure.
const (
	OpArticle  = "article"
	OpMeta     = "meta_description"
	OpKeywords = "keywords"
	OpQuality  = "quality"
)

var failurePrefix = map[string]string{
	OpArticle:  "Content generation failed",
	OpMeta:     "Meta description generation failed",
	OpKeywords: "Keyword extraction failed",
	OpQuality:  "Quality analysis failed",
}

// Failure is the uniform error returned by every Client operation.
type Failure struct {
	Op  string
	Err error
}

func (f *Failure) Error() string {
	return failurePrefix[f.Op] + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Chatter sends one chat request. *Registry satisfies it.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Defaults are the model and sampling settings injected at construction.
type Defaults struct {
	ArticleModel    string
	EnrichmentModel string
	QualityModel    string
	MaxTokens       int
	Temperature     float64
}

// Article is a successful primary generation.
type Article struct {
	Content    string
	TokensUsed int
	Model      string
}

// MetaDescription is a successful meta description call.
type MetaDescription struct {
	MetaDescription string
	Length          int
	TokensUsed      int
}

// Keywords is a successful keyword extraction.
type Keywords struct {
	Keywords   []string
	Count      int
	TokensUsed int
}

// Quality is a successful quality analysis. Analysis is free text.
type Quality struct {
	Analysis   string
	TokensUsed int
	AnalyzedAt time.Time
}

// Client implements the four generation operations on top of a Chatter.
// It never retries; a failed call is returned as a *Failure.
type Client struct {
	chat     Chatter
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewClient creates a generation client. Empty defaults fall back to the
// package constants.
func NewClient(chat Chatter, defaults Defaults, logger *slog.Logger) *Client {
	if defaults.ArticleModel == "" {
		defaults.ArticleModel = DefaultArticleModel
	}
	if defaults.EnrichmentModel == "" {
		defaults.EnrichmentModel = DefaultEnrichmentModel
	}
	if defaults.QualityModel == "" {
		defaults.QualityModel = defaults.ArticleModel
	}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{chat: chat, defaults: defaults, logger: logger, now: time.Now}
}

// GenerateArticle runs the primary generation call for a topic.
func (c *Client) GenerateArticle(ctx context.Context, topic string, opts ArticleOptions) (*Article, error) {
	model := opts.Model
	if model == "" {
		model = c.defaults.ArticleModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.defaults.MaxTokens
	}
	temperature := c.defaults.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	prompt := BuildArticlePrompt(topic, opts)
	resp, err := c.chat.Chat(ctx, ChatRequest{
		Model:            model,
		System:           writerPersona,
		User:             prompt,
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             articleTopP,
		FrequencyPenalty: articlePenalty,
		PresencePenalty:  articlePenalty,
	})
	if err != nil {
		c.logger.Error("content generation failed",
			"topic", topic,
			"model", model,
			"content_type", opts.ContentType,
			"tone", opts.Tone,
			"word_count", opts.WordCount,
			"error", err,
		)
		return nil, &Failure{Op: OpArticle, Err: err}
	}

	tokens := resp.TokensUsed
	if tokens <= 0 {
		tokens = cost.EstimateTokens(writerPersona + prompt + resp.Text)
		c.logger.Warn("provider reported no token usage, estimating",
			"topic", topic,
			"model", model,
			"tokens_estimated", tokens,
		)
	}

	return &Article{Content: resp.Text, TokensUsed: tokens, Model: resp.Model}, nil
}

// GenerateMetaDescription summarises body for search results. maxLength
// is passed to the model as an instruction and is not enforced here.
func (c *Client) GenerateMetaDescription(ctx context.Context, body string, maxLength int) (*MetaDescription, error) {
	if maxLength <= 0 {
		maxLength = DefaultMetaLength
	}

	resp, err := c.chat.Chat(ctx, ChatRequest{
		Model:       c.defaults.EnrichmentModel,
		System:      seoPersona,
		User:        metaDescriptionPrompt(body, maxLength),
		MaxTokens:   enrichmentMaxTokens,
		Temperature: metaTemperature,
	})
	if err != nil {
		c.logger.Error("meta description generation failed",
			"content_length", len(body),
			"max_length", maxLength,
			"error", err,
		)
		return nil, &Failure{Op: OpMeta, Err: err}
	}

	meta := strings.TrimSpace(resp.Text)
	return &MetaDescription{
		MetaDescription: meta,
		Length:          utf8.RuneCountInString(meta),
		TokensUsed:      resp.TokensUsed,
	}, nil
}

// ExtractKeywords asks for a comma-separated keyword list and splits it.
// The number of returned keywords is whatever the model produced.
func (c *Client) ExtractKeywords(ctx context.Context, body string, count int) (*Keywords, error) {
	if count <= 0 {
		count = DefaultKeywordCount
	}

	resp, err := c.chat.Chat(ctx, ChatRequest{
		Model:       c.defaults.EnrichmentModel,
		User:        keywordsPrompt(body, count),
		MaxTokens:   enrichmentMaxTokens,
		Temperature: keywordTemperature,
	})
	if err != nil {
		c.logger.Error("keyword extraction failed",
			"content_length", len(body),
			"count", count,
			"error", err,
		)
		return nil, &Failure{Op: OpKeywords, Err: err}
	}

	keywords := SplitKeywords(resp.Text)
	return &Keywords{Keywords: keywords, Count: len(keywords), TokensUsed: resp.TokensUsed}, nil
}

// AnalyzeQuality requests a free-text review with a 1-10 score.
func (c *Client) AnalyzeQuality(ctx context.Context, body string) (*Quality, error) {
	resp, err := c.chat.Chat(ctx, ChatRequest{
		Model:       c.defaults.QualityModel,
		System:      qualityPersona,
		User:        qualityPrompt(body),
		MaxTokens:   qualityMaxTokens,
		Temperature: qualityTemperature,
	})
	if err != nil {
		c.logger.Error("quality analysis failed",
			"content_length", len(body),
			"error", err,
		)
		return nil, &Failure{Op: OpQuality, Err: err}
	}

	return &Quality{Analysis: resp.Text, TokensUsed: resp.TokensUsed, AnalyzedAt: c.now()}, nil
}

// SplitKeywords splits a comma-separated model reply into trimmed,
// non-empty entries. Duplicates are kept.
func SplitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}
