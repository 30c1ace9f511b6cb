// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"autoblogger/internal/models"
)

// Options are the generation settings shared by single and bulk requests.
// Zero values mean "use the default".
type Options struct {
	ContentType    models.ContentType `json:"content_type"`
	Tone           models.Tone        `json:"tone"`
	TargetAudience string             `json:"target_audience"`
	WordCount      int                `json:"word_count"`
	Keywords       []string           `json:"keywords"`
	Model          string             `json:"ai_model"`
	Temperature    *float64           `json:"temperature"`
}

// Request asks for one generated item. Title, when set, is used verbatim.
type Request struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	Options
}

// BulkRequest asks for one generated item per topic with shared options.
type BulkRequest struct {
	Topics []string `json:"topics"`
	Options
}

// Limits are the caller-facing input constraints.
type Limits struct {
	MinTopicLength    int
	MaxTopicLength    int
	MaxTitleLength    int
	MaxAudienceLength int
	MinWordCount      int
	MaxWordCount      int
	MaxKeywords       int
	MaxKeywordLength  int
	MaxBulkTopics     int
	MinTemperature    float64
	MaxTemperature    float64
}

// DefaultLimits returns the standard request constraints.
func DefaultLimits() Limits {
	return Limits{
		MinTopicLength:    5,
		MaxTopicLength:    200,
		MaxTitleLength:    255,
		MaxAudienceLength: 100,
		MinWordCount:      100,
		MaxWordCount:      5000,
		MaxKeywords:       10,
		MaxKeywordLength:  50,
		MaxBulkTopics:     10,
		MinTemperature:    0,
		MaxTemperature:    2,
	}
}

// ValidationError reports every rejected field of a request. It is
// returned before any external call is made.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks a single-item request against the limits.
func (l Limits) Validate(req Request) error {
	var v ValidationError
	l.checkTopic(&v, "topic", req.Topic)
	if utf8.RuneCountInString(req.Title) > l.MaxTitleLength {
		v.Add("title", fmt.Sprintf("The title may not be greater than %d characters.", l.MaxTitleLength))
	}
	l.checkOptions(&v, req.Options)
	return v.orNil()
}

// ValidateBulk checks a bulk request against the limits.
func (l Limits) ValidateBulk(req BulkRequest) error {
	var v ValidationError
	switch {
	case len(req.Topics) == 0:
		v.Add("topics", "The topics field is required.")
	case len(req.Topics) > l.MaxBulkTopics:
		v.Add("topics", fmt.Sprintf("The topics may not have more than %d items.", l.MaxBulkTopics))
	}
	for i, topic := range req.Topics {
		l.checkTopic(&v, fmt.Sprintf("topics.%d", i), topic)
	}
	l.checkOptions(&v, req.Options)
	return v.orNil()
}

func (l Limits) checkTopic(v *ValidationError, field, topic string) {
	n := utf8.RuneCountInString(strings.TrimSpace(topic))
	switch {
	case n == 0:
		v.Add(field, fmt.Sprintf("The %s field is required.", field))
	case n < l.MinTopicLength:
		v.Add(field, fmt.Sprintf("The %s must be at least %d characters.", field, l.MinTopicLength))
	case n > l.MaxTopicLength:
		v.Add(field, fmt.Sprintf("The %s may not be greater than %d characters.", field, l.MaxTopicLength))
	}
}

func (l Limits) checkOptions(v *ValidationError, o Options) {
	if o.ContentType != "" && !o.ContentType.Valid() {
		v.Add("content_type", "The selected content type is invalid.")
	}
	if o.Tone != "" && !o.Tone.Valid() {
		v.Add("tone", "The selected tone is invalid.")
	}
	if utf8.RuneCountInString(o.TargetAudience) > l.MaxAudienceLength {
		v.Add("target_audience", fmt.Sprintf("The target audience may not be greater than %d characters.", l.MaxAudienceLength))
	}
	if o.WordCount != 0 && (o.WordCount < l.MinWordCount || o.WordCount > l.MaxWordCount) {
		v.Add("word_count", fmt.Sprintf("The word count must be between %d and %d.", l.MinWordCount, l.MaxWordCount))
	}
	if len(o.Keywords) > l.MaxKeywords {
		v.Add("keywords", fmt.Sprintf("The keywords may not have more than %d items.", l.MaxKeywords))
	}
	for i, kw := range o.Keywords {
		if utf8.RuneCountInString(kw) > l.MaxKeywordLength {
			v.Add(fmt.Sprintf("keywords.%d", i), fmt.Sprintf("The keyword may not be greater than %d characters.", l.MaxKeywordLength))
		}
	}
	if o.Temperature != nil && (*o.Temperature < l.MinTemperature || *o.Temperature > l.MaxTemperature) {
		v.Add("temperature", fmt.Sprintf("The temperature must be between %g and %g.", l.MinTemperature, l.MaxTemperature))
	}
}

// normalize fills every empty option with its default and returns the
// snapshot stored on the content item.
func normalize(o Options, defaultModel string, defaultTemperature float64) models.GenerationOptions {
	g := models.GenerationOptions{
		ContentType:    o.ContentType,
		Tone:           o.Tone,
		TargetAudience: strings.TrimSpace(o.TargetAudience),
		WordCount:      o.WordCount,
		Keywords:       trimKeywords(o.Keywords),
		Model:          o.Model,
		Temperature:    defaultTemperature,
	}
	if g.ContentType == "" {
		g.ContentType = models.DefaultContentType
	}
	if g.Tone == "" {
		g.Tone = models.DefaultTone
	}
	if g.TargetAudience == "" {
		g.TargetAudience = models.DefaultTargetAudience
	}
	if g.WordCount == 0 {
		g.WordCount = models.DefaultWordCount
	}
	if g.Model == "" {
		g.Model = defaultModel
	}
	if o.Temperature != nil {
		g.Temperature = *o.Temperature
	}
	return g
}

func trimKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
