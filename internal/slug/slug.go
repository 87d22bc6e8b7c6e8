// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from site names.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// nonWord matches anything that isn't a word character, whitespace or hyphen.
	nonWord = regexp.MustCompile(`[^\w\s-]`)
	// whitespace collapses runs of whitespace into a single separator.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "My Site! 2026" → "my-site-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonWord.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// WithSuffix returns the slug disambiguated with a numeric suffix.
// WithSuffix("my-site", 2) → "my-site-2". A suffix below 2 returns the
// slug unchanged, since the first site under a name carries no suffix.
func WithSuffix(s string, n int) string {
	if n < 2 {
		return s
	}
	return fmt.Sprintf("%s-%d", s, n)
}
