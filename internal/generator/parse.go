// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// Sections holds the fields extracted from a model reply.
type Sections struct {
	HTML  string
	CSS   string
	JS    string
	Notes string
}

// Each section is recognized by a start marker and ends at the next marker
// or end of input. Two shapes are tolerated per section: a fenced code
// block directly after the marker, or raw text running until the next
// marker. Matching is case-insensitive.
var (
	htmlFenced  = regexp.MustCompile("(?is)HTML:\\s*```(?:html)?\\s*\\n(.*?)\\n\\s*```")
	cssFenced   = regexp.MustCompile("(?is)CSS:\\s*```(?:css)?\\s*\\n(.*?)\\n\\s*```")
	jsFenced    = regexp.MustCompile("(?is)JS:\\s*```(?:javascript|js)?\\s*\\n(.*?)\\n\\s*```")
	notesFenced = regexp.MustCompile("(?is)NOTES:\\s*```(?:markdown|md)?\\s*\\n(.*?)\\n\\s*```")

	htmlRaw  = regexp.MustCompile(`(?is)HTML:\s*(.*?)\s*(?:CSS:|JS:|NOTES:|$)`)
	cssRaw   = regexp.MustCompile(`(?is)CSS:\s*(.*?)\s*(?:HTML:|JS:|NOTES:|$)`)
	jsRaw    = regexp.MustCompile(`(?is)JS:\s*(.*?)\s*(?:HTML:|CSS:|NOTES:|$)`)
	notesRaw = regexp.MustCompile(`(?is)NOTES:\s*(.*?)\s*(?:HTML:|CSS:|JS:|$)`)

	anyMarker = regexp.MustCompile(`(?i)(?:HTML|CSS|JS|NOTES):`)
)

// ParseSections extracts the labeled sections from a model reply. When no
// marker is present at all the entire reply becomes the HTML section; this
// lenient fallback means a novel output format degrades instead of failing.
func ParseSections(text string) Sections {
	if !anyMarker.MatchString(text) {
		return Sections{HTML: strings.TrimSpace(text)}
	}

	return Sections{
		HTML:  extract(text, htmlFenced, htmlRaw),
		CSS:   extract(text, cssFenced, cssRaw),
		JS:    extract(text, jsFenced, jsRaw),
		Notes: extract(text, notesFenced, notesRaw),
	}
}

// extract tries the fenced pattern first, then the raw continuation
// pattern. Returns an empty string when the section is absent.
func extract(text string, fenced, raw *regexp.Regexp) string {
	if m := fenced.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := raw.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ParseError reports a reply that could not be parsed into the expected
// structure. Raw preserves the model output so the caller can still show
// something to the user.
type ParseError struct {
	Msg string
	Raw string
}

func (e *ParseError) Error() string { return e.Msg }

// ExtractJSON returns the first balanced {...} span in text. Models asked
// for JSON routinely wrap it in prose or code fences; scanning for the
// balanced span recovers the object without trusting the surroundings.
// Braces inside JSON strings are skipped.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", &ParseError{Msg: "no JSON object found in response", Raw: text}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", &ParseError{Msg: fmt.Sprintf("unbalanced JSON object starting at offset %d", start), Raw: text}
}
