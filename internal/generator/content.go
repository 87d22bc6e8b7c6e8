// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ContentOptions tunes standalone text content generation.
type ContentOptions struct {
	Tone     string `json:"tone,omitempty"`
	Length   string `json:"length,omitempty"`
	Language string `json:"language,omitempty"`
}

// ContentSection is one titled block of generated copy.
type ContentSection struct {
	Heading string   `json:"heading"`
	Content string   `json:"content"`
	Bullets []string `json:"bullets,omitempty"`
}

// ContentMeta carries the SEO metadata suggested for the generated copy.
type ContentMeta struct {
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// GeneratedContent is the structured result of a content generation call.
type GeneratedContent struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	Sections []ContentSection `json:"sections"`
	Meta     ContentMeta      `json:"meta"`
}

const contentSystemPrompt = `You are a copywriter producing website content.

Return the result as a single JSON object in exactly this shape, with no
other text around it:
{
  "title": "main title",
  "subtitle": "subtitle",
  "sections": [
    {"heading": "section heading", "content": "section copy", "bullets": ["point 1", "point 2"]}
  ],
  "meta": {"description": "search engine description", "keywords": ["keyword 1", "keyword 2"]}
}`

// GenerateContent produces structured page copy for a topic. The model is
// asked for JSON; the reply is recovered with ExtractJSON so prose or code
// fences around the object do not break the call. On an unparseable reply
// the ParseError carries the raw text.
func (c *Client) GenerateContent(ctx context.Context, topic string, opts ContentOptions) (*GeneratedContent, error) {
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) < minPromptLen {
		return nil, &ValidationError{Msg: fmt.Sprintf("topic must be at least %d characters", minPromptLen)}
	}

	if opts.Tone == "" {
		opts.Tone = "professional"
	}
	if opts.Length == "" {
		opts.Length = "medium"
	}
	if opts.Language == "" {
		opts.Language = "english"
	}

	instruction := fmt.Sprintf(
		"Write %s website copy in %s about: %s\n\nTone: %s\nMake the text engaging, easy to read, structured with subheadings and key bullet points, and search engine friendly.",
		opts.Length, opts.Language, topic, opts.Tone,
	)

	raw, err := c.src.Generate(ctx, contentSystemPrompt, instruction)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	span, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var content GeneratedContent
	if err := json.Unmarshal([]byte(span), &content); err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("invalid JSON in response: %v", err), Raw: raw}
	}

	return &content, nil
}
