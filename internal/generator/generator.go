// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generator turns a user's free-text description into site content
// by prompting an LLM and parsing its loosely structured reply into markup,
// style, script and notes sections.
package generator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"siteforge/internal/models"
)

// minPromptLen is the minimum prompt length in runes. Shorter prompts are
// rejected before any network call is made.
const minPromptLen = 10

// TextSource produces text from prompts. *ai.Registry satisfies it; tests
// inject fakes.
type TextSource interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ActiveModel() string
}

// Options tunes the website generation instruction.
type Options struct {
	Category string   `json:"category,omitempty"` // e.g. "business", "portfolio", "restaurant"
	Style    string   `json:"style,omitempty"`    // e.g. "modern", "minimal"
	Colors   []string `json:"colors,omitempty"`   // hex color palette
	Pages    []string `json:"pages,omitempty"`    // sections to include
	Tone     string   `json:"tone,omitempty"`
	Length   string   `json:"length,omitempty"` // "short", "medium", "long"
}

// withDefaults fills unset options with the same defaults the builder UI
// pre-selects.
func (o Options) withDefaults() Options {
	if o.Category == "" {
		o.Category = "business"
	}
	if o.Style == "" {
		o.Style = "modern"
	}
	if len(o.Colors) == 0 {
		o.Colors = []string{"#3B82F6", "#1E40AF"}
	}
	if len(o.Pages) == 0 {
		o.Pages = []string{"home", "about", "contact"}
	}
	if o.Tone == "" {
		o.Tone = "professional"
	}
	if o.Length == "" {
		o.Length = "medium"
	}
	return o
}

// Result is a parsed generation outcome. Raw always holds the unmodified
// model output so callers can show something even when parsing was lossy.
type Result struct {
	Content models.SiteContent `json:"content"`
	Notes   string             `json:"notes,omitempty"`
	Raw     string             `json:"-"`
	Model   string             `json:"model,omitempty"`
}

// ValidationError reports bad user input rejected before any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// GenerationError reports a failed upstream AI call. The call is never
// retried here; retry policy belongs to the caller.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// Client builds instructions, calls the text source and parses replies.
// Construct once at startup and share across requests.
type Client struct {
	src TextSource
}

// New creates a generation client backed by the given text source.
func New(src TextSource) *Client {
	return &Client{src: src}
}

// GenerateSite produces website content from a free-text description.
// The prompt must be at least 10 characters; the reply is parsed leniently,
// falling back to treating the whole reply as markup when no section
// markers are present.
func (c *Client) GenerateSite(ctx context.Context, prompt string, opts Options) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) < minPromptLen {
		return nil, &ValidationError{Msg: fmt.Sprintf("prompt must be at least %d characters", minPromptLen)}
	}

	opts = opts.withDefaults()

	raw, err := c.src.Generate(ctx, siteSystemPrompt, buildSiteInstruction(prompt, opts))
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	sections := ParseSections(raw)
	return &Result{
		Content: models.SiteContent{
			HTML: sections.HTML,
			CSS:  sections.CSS,
			JS:   sections.JS,
		},
		Notes: sections.Notes,
		Raw:   raw,
		Model: c.src.ActiveModel(),
	}, nil
}

// siteSystemPrompt fixes the model's role and the section layout the parser
// expects. The format instruction is load-bearing: ParseSections keys off
// the HTML:/CSS:/JS:/NOTES: markers.
const siteSystemPrompt = `You are an expert web developer who builds complete single-page websites.

Rules:
- Produce clean, semantic HTML for the body content only (no <html>, <head> or <body> tags).
- Use Tailwind CSS utility classes where practical, plus custom CSS for anything else.
- Make the site fully responsive.
- Add small interactive touches with vanilla JavaScript.
- Add short comments in the code explaining the main blocks.

Return the result in exactly this format:
HTML:
` + "```html" + `
[markup here]
` + "```" + `
CSS:
` + "```css" + `
[styles here]
` + "```" + `
JS:
` + "```javascript" + `
[script here]
` + "```" + `
NOTES:
[optional remarks about the design, in Markdown]`

// buildSiteInstruction embeds the user's description and generation options
// into a single instruction text.
func buildSiteInstruction(prompt string, opts Options) string {
	var b strings.Builder
	b.WriteString("Build a complete website based on this description:\n\n")
	b.WriteString(prompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Site category: %s\n", opts.Category)
	fmt.Fprintf(&b, "Visual style: %s\n", opts.Style)
	fmt.Fprintf(&b, "Color palette: %s\n", strings.Join(opts.Colors, ", "))
	fmt.Fprintf(&b, "Sections: %s\n", strings.Join(opts.Pages, ", "))
	fmt.Fprintf(&b, "Tone: %s\n", opts.Tone)
	fmt.Fprintf(&b, "Content length: %s\n", opts.Length)
	return b.String()
}
