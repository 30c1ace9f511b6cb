// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"fmt"
	"strings"
)

// Prompt defaults used when an option is left empty.
const (
	DefaultWordCount      = 1000
	DefaultTone           = "professional"
	DefaultTargetAudience = "general readers"
	DefaultContentLabel   = "blog post"
)

// ArticleOptions are the caller-facing knobs of an article generation.
// Empty fields take the package defaults; a nil Temperature uses the
// client's configured temperature.
type ArticleOptions struct {
	ContentType    string // stored enum, e.g. "blog_post"
	WordCount      int
	Tone           string
	TargetAudience string
	Keywords       []string
	Model          string
	MaxTokens      int
	Temperature    *float64
}

var articleRequirements = []string{
	"Create an engaging, SEO-optimized title",
	"Include a compelling introduction",
	"Use clear headings and subheadings (H2, H3)",
	"Provide valuable, actionable information",
	"Include a strong conclusion with call-to-action",
	"Ensure proper keyword density and semantic SEO",
	"Make it readable and engaging",
	"Format with proper markdown for web publishing",
}

// BuildArticlePrompt renders the instruction sent for the primary
// generation call. The topic is embedded verbatim.
func BuildArticlePrompt(topic string, opts ArticleOptions) string {
	wordCount := opts.WordCount
	if wordCount <= 0 {
		wordCount = DefaultWordCount
	}
	tone := opts.Tone
	if tone == "" {
		tone = DefaultTone
	}
	audience := opts.TargetAudience
	if audience == "" {
		audience = DefaultTargetAudience
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a comprehensive %s about '%s' with the following specifications:\n\n", contentLabel(opts.ContentType), topic)
	fmt.Fprintf(&b, "- Word count: approximately %d words\n", wordCount)
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	fmt.Fprintf(&b, "- Target audience: %s\n", audience)
	if len(opts.Keywords) > 0 {
		fmt.Fprintf(&b, "- Include these keywords naturally: %s\n", strings.Join(opts.Keywords, ", "))
	}

	b.WriteString("\nRequirements:\n")
	for i, req := range articleRequirements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, req)
	}
	b.WriteString("\nPlease generate the complete content now.")

	return b.String()
}

// contentLabel turns a stored content type into the phrase used in the
// prompt ("blog_post" becomes "blog post").
func contentLabel(contentType string) string {
	if contentType == "" {
		return DefaultContentLabel
	}
	return strings.ReplaceAll(contentType, "_", " ")
}

func metaDescriptionPrompt(body string, maxLength int) string {
	return fmt.Sprintf("Create an SEO-optimized meta description (max %d characters) for the following content:\n\n%s", maxLength, body)
}

func keywordsPrompt(body string, count int) string {
	return fmt.Sprintf("Extract the %d most important SEO keywords/phrases from this content. Return them as a comma-separated list:\n\n%s", count, body)
}

func qualityPrompt(body string) string {
	return "Analyze this blog post content and provide a quality score (1-10) and specific improvement suggestions:\n\n" + body
}
