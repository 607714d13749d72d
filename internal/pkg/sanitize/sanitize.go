// Package sanitize reduces editor HTML to a safe subset and extracts readable text.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var blockBoundary = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|blockquote|pre|tr)>|<br\s*/?>`)

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	content *bluemonday.Policy
	strict  *bluemonday.Policy
	md      goldmark.Markdown
}

func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowElements("figure", "figcaption", "u", "s", "mark")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(ql|language)-[a-z0-9-]+$`)).Globally()
	p.AllowAttrs("alt", "title").OnElements("img")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		content: p,
		strict:  bluemonday.StrictPolicy(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// SanitizeHTML keeps the formatting subset editors produce and drops everything else.
func (s *Sanitizer) SanitizeHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return strings.TrimSpace(s.content.Sanitize(raw))
}

// ToPlainText strips all markup, keeping block boundaries as spaces.
func (s *Sanitizer) ToPlainText(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}
	spaced := blockBoundary.ReplaceAllStringFunc(htmlStr, func(m string) string { return m + " " })
	text := html.UnescapeString(s.strict.Sanitize(spaced))
	return strings.Join(strings.Fields(text), " ")
}

// RenderMarkdown renders editor source written in Markdown to HTML. The result still
// needs SanitizeHTML.
func (s *Sanitizer) RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
