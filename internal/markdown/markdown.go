// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts generated Markdown into HTML for display and
// into plain text for word counting, title detection, and excerpts. Both
// paths share one goldmark parser configuration.
package markdown

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // GitHub-Flavored Markdown: tables, strikethrough, autolinks, task lists
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(), // model output sometimes mixes raw HTML into the Markdown
	),
)

// htmlTag matches a single HTML tag inside a raw HTML block.
var htmlTag = regexp.MustCompile(`<[^>]*>`)

// ToHTML converts Markdown source into HTML. Raw HTML embedded in the
// Markdown is passed through unchanged.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PlainText strips all Markdown syntax and HTML tags from source and
// returns the remaining text. Every block element ends on its own line and
// soft line breaks inside a paragraph are kept, so the first line of the
// result is the first line a reader would see.
func PlainText(source string) string {
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				newline()
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			writeLines(&b, n, src)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			var raw strings.Builder
			writeLines(&raw, n, src)
			if node.HasClosure() {
				raw.Write(node.ClosureLine.Value(src))
			}
			b.WriteString(htmlTag.ReplaceAllString(raw.String(), ""))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// WordCount returns the number of whitespace-delimited tokens in the plain
// text of source.
func WordCount(source string) int {
	return len(strings.Fields(PlainText(source)))
}

// Excerpt returns the plain text of source with whitespace collapsed,
// limited to limit characters. Truncated text ends in "...".
func Excerpt(source string, limit int) string {
	flat := strings.Join(strings.Fields(PlainText(source)), " ")
	if utf8.RuneCountInString(flat) <= limit {
		return flat
	}
	r := []rune(flat)
	return strings.TrimRight(string(r[:limit]), " ") + "..."
}

func writeLines(b *strings.Builder, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
}
