// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"autoblogger/internal/markdown"
)

var headingRe = regexp.MustCompile(`(?m)^#[ \t]+(.+)$`)

// Title line bounds, both exclusive.
const (
	minTitleLine    = 5
	maxTitleLine    = 100
	fallbackRunes   = 50
	fallbackEllipse = "..."
)

// MaxTitleRunes matches the width of content.title.
const MaxTitleRunes = 255

// ExtractTitle derives a title from a generated body. A level-one markdown
// heading anywhere in the body wins. Otherwise the first non-empty line of
// the plain text is used when its length is strictly between 5 and 100. Otherwise the
// first 50 plain-text characters are used with "..." appended. A heading
// longer than MaxTitleRunes is cut to that many runes.
func ExtractTitle(body string) string {
	if m := headingRe.FindStringSubmatch(body); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return truncateRunes(title, MaxTitleRunes)
		}
	}

	plain := markdown.PlainText(body)
	for _, line := range strings.Split(plain, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n := utf8.RuneCountInString(line); n > minTitleLine && n < maxTitleLine {
			return line
		}
		break
	}

	flat := []rune(strings.Join(strings.Fields(plain), " "))
	if len(flat) > fallbackRunes {
		flat = flat[:fallbackRunes]
	}
	return string(flat) + fallbackEllipse
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
