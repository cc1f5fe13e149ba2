// Package render derives the stored renderings of a note body: sanitized HTML,
// canonical Markdown, a plain-text excerpt and reading statistics.
package render

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	// ExcerptLen is the maximum excerpt length in runes, before the ellipsis.
	ExcerptLen = 200
	// WordsPerMinute drives the reading time estimate.
	WordsPerMinute = 200
)

// Derived holds everything computed from raw content.
type Derived struct {
	HTML        string
	Canonical   string
	Excerpt     string
	WordCount   int
	ReadingTime int
}

// Renderer converts Markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md    goldmark.Markdown
	ugc   *bluemonday.Policy
	plain *bluemonday.Policy
}

// New constructs a Renderer with GitHub-flavoured Markdown and a UGC sanitizing policy.
func New() *Renderer {
	return &Renderer{
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
		ugc:   bluemonday.UGCPolicy(),
		plain: bluemonday.StrictPolicy(),
	}
}

// Derive computes all derived fields for content.
func (r *Renderer) Derive(content string) (Derived, error) {
	canonical := Canonical(content)
	htmlOut, err := r.HTML(canonical)
	if err != nil {
		return Derived{}, err
	}
	text := r.PlainText(htmlOut)
	words := len(strings.Fields(text))
	return Derived{
		HTML:        htmlOut,
		Canonical:   canonical,
		Excerpt:     Excerpt(text, ExcerptLen),
		WordCount:   words,
		ReadingTime: ReadingTime(words),
	}, nil
}

// HTML renders Markdown and sanitizes the result.
func (r *Renderer) HTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return r.ugc.Sanitize(buf.String()), nil
}

// PlainText strips all markup from rendered HTML and collapses whitespace.
func (r *Renderer) PlainText(rendered string) string {
	stripped := html.UnescapeString(r.plain.Sanitize(rendered))
	return strings.Join(strings.Fields(stripped), " ")
}

// Canonical normalizes line endings, trailing spaces and runs of blank lines.
func Canonical(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " \t")
		if ln == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, ln)
	}
	res := strings.Trim(strings.Join(out, "\n"), "\n")
	if res == "" {
		return ""
	}
	return res + "\n"
}

// Excerpt truncates text to max runes and appends an ellipsis when cut.
func Excerpt(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:max]), " ") + "…"
}

// ReadingTime returns minutes needed to read words, rounded up.
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}
