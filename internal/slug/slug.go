// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and the numeric suffixing used to keep slugs unique.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a title yields no slug characters at all.
const Fallback = "content"

var (
	// apostrophes are dropped so "How's" becomes "hows", not "how-s".
	apostrophes = strings.NewReplacer("'", "", "’", "")
	// nonAlphanumeric matches runs of anything that isn't a letter or digit.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Generate creates a URL-friendly slug from the given string: accents are
// folded to ASCII, everything is lowercased, and every run of
// non-alphanumeric characters becomes a single hyphen.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = foldAccents(result)
	result = apostrophes.Replace(result)
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Base returns Generate(title), or Fallback if that is empty.
func Base(title string) string {
	if s := Generate(title); s != "" {
		return s
	}
	return Fallback
}

// WithSuffix returns the n-th candidate for base: base itself for n == 0,
// and base-n otherwise.
func WithSuffix(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// FirstFree walks base, base-1, base-2, … and returns the first candidate
// that taken reports as unused.
func FirstFree(base string, taken func(candidate string) (bool, error)) (string, error) {
	for n := 0; ; n++ {
		candidate := WithSuffix(base, n)
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
}

// foldAccents strips combining marks after canonical decomposition, so
// "café" becomes "cafe". Characters without an ASCII base are left for the
// hyphen pass to remove.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
