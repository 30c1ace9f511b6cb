// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the records persisted by the store: generated
// content items and the users that own them.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentType is the kind of piece requested at generation time.
type ContentType string

const (
	ContentTypeBlogPost ContentType = "blog_post"
	ContentTypeArticle  ContentType = "article"
	ContentTypeCustom   ContentType = "custom"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeBlogPost, ContentTypeArticle, ContentTypeCustom:
		return true
	}
	return false
}

// ContentStatus represents the publishing state of a content item.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusPublished ContentStatus = "published"
	ContentStatusArchived  ContentStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ContentStatus) Valid() bool {
	switch s {
	case ContentStatusDraft, ContentStatusPublished, ContentStatusArchived:
		return true
	}
	return false
}

// Tone is the writing register requested for generation.
type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneCasual         Tone = "casual"
	ToneFriendly       Tone = "friendly"
	ToneFormal         Tone = "formal"
	ToneConversational Tone = "conversational"
)

// Valid reports whether t is one of the known tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneFriendly, ToneFormal, ToneConversational:
		return true
	}
	return false
}

// Generation defaults applied when the caller leaves an option empty.
const (
	DefaultContentType    = ContentTypeBlogPost
	DefaultTone           = ToneProfessional
	DefaultTargetAudience = "general readers"
	DefaultWordCount      = 1000
	DefaultTemperature    = 0.7
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 225

// GenerationOptions is the snapshot of inputs used to generate a content
// item. It is written once at creation and kept for display and audit.
type GenerationOptions struct {
	ContentType    ContentType `json:"content_type"`
	Tone           Tone        `json:"tone"`
	TargetAudience string      `json:"target_audience"`
	WordCount      int         `json:"word_count"`
	Keywords       []string    `json:"keywords"`
	Model          string      `json:"model"`
	Temperature    float64     `json:"temperature"`
}

// QualityAnalysis is the stored result of a quality-analysis call. Analysis
// is the model's free-text review. Score is only populated when a structured
// score is available, which the analysis call never provides.
type QualityAnalysis struct {
	Analysis   string    `json:"analysis"`
	TokensUsed int       `json:"tokens_used"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Score      *int      `json:"score,omitempty"`
}

// Content is one generated piece owned by a single user.
type Content struct {
	ID                uuid.UUID         `json:"id"`
	OwnerID           uuid.UUID         `json:"user_id"`
	Title             string            `json:"title"`
	Slug              string            `json:"slug"`
	Topic             string            `json:"topic"`
	Body              string            `json:"content"`
	MetaDescription   *string           `json:"meta_description"`
	Keywords          []string          `json:"keywords"`
	Status            ContentStatus     `json:"status"`
	ContentType       ContentType       `json:"content_type"`
	Tone              Tone              `json:"tone"`
	TargetAudience    string            `json:"target_audience"`
	WordCount         int               `json:"word_count"`
	TokensUsed        int               `json:"tokens_used"`
	GenerationCost    float64           `json:"generation_cost"`
	AIModel           string            `json:"ai_model"`
	GenerationOptions GenerationOptions `json:"generation_options"`
	QualityAnalysis   *QualityAnalysis  `json:"quality_analysis"`
	PublishedAt       *time.Time        `json:"published_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsPublished returns true if the content item is in published status.
func (c *Content) IsPublished() bool {
	return c.Status == ContentStatusPublished
}

// IsDraft returns true if the content item is in draft status.
func (c *Content) IsDraft() bool {
	return c.Status == ContentStatusDraft
}

// ReadingTime returns the estimated minutes needed to read the item.
func (c *Content) ReadingTime() int {
	return ReadingTime(c.WordCount)
}

// QualityScore returns the structured score from the latest analysis, or
// nil when there is none.
func (c *Content) QualityScore() *int {
	if c.QualityAnalysis == nil {
		return nil
	}
	return c.QualityAnalysis.Score
}

// ReadingTime returns ceil(words / WordsPerMinute), never less than one.
func ReadingTime(words int) int {
	if words <= 0 {
		return 1
	}
	return max(1, (words+WordsPerMinute-1)/WordsPerMinute)
}

// ContentPatch is a partial owner edit. Nil fields are left unchanged.
type ContentPatch struct {
	Title           *string
	Body            *string
	MetaDescription *string
	Keywords        []string
	KeywordsSet     bool
	Status          *ContentStatus
}

// ContentFilter narrows a content listing for one owner.
type ContentFilter struct {
	Status      ContentStatus
	ContentType ContentType
	Search      string
	Page        int
	PerPage     int
}

// ContentStats is the per-owner aggregate shown on the dashboard.
type ContentStats struct {
	TotalContent     int            `json:"total_content"`
	PublishedContent int            `json:"published_content"`
	DraftContent     int            `json:"draft_content"`
	ArchivedContent  int            `json:"archived_content"`
	TotalWords       int            `json:"total_words"`
	TotalTokensUsed  int            `json:"total_tokens_used"`
	TotalCost        float64        `json:"total_cost"`
	ContentByType    map[string]int `json:"content_by_type"`
	ContentByMonth   map[string]int `json:"content_by_month"`
}
