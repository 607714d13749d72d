package blog

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hellorun/server/internal/models"
)

const (
	maxTagRunes     = 40
	wordsPerMinute  = 200
	truncatedMarker = "...[truncated]"
)

// Sanitizer turns editor HTML into the stored safe subset and derives plain text from it.
type Sanitizer interface {
	SanitizeHTML(raw string) string
	ToPlainText(html string) string
}

// MarkdownRenderer is implemented by sanitizers that can render editor source written in Markdown.
type MarkdownRenderer interface {
	RenderMarkdown(src string) (string, error)
}

// PostInput is the author-facing form payload for creating or editing a post.
type PostInput struct {
	Title          string   `json:"title"           form:"title"`
	Excerpt        string   `json:"excerpt"         form:"excerpt"`
	ContentHTML    string   `json:"content_html"    form:"content_html"`
	ContentRaw     string   `json:"content_raw"     form:"content_raw"`
	CoverImageURL  string   `json:"cover_image_url" form:"cover_image_url"`
	Category       string   `json:"category"        form:"category"`
	CustomCategory string   `json:"custom_category" form:"custom_category"`
	Tags           []string `json:"tags"            form:"tags"`
	Submit         bool     `json:"submit"          form:"submit"`
}

// AutosavePatch is the admin partial update. Nil fields keep the current value.
type AutosavePatch struct {
	Title           *string  `json:"title"`
	Excerpt         *string  `json:"excerpt"`
	ContentHTML     *string  `json:"content_html"`
	ContentRaw      *string  `json:"content_raw"`
	CoverImageURL   *string  `json:"cover_image_url"`
	Category        *string  `json:"category"`
	CustomCategory  *string  `json:"custom_category"`
	Tags            []string `json:"tags"`
	Status          *string  `json:"status"`
	Featured        *bool    `json:"featured"`
	SEOTitle        *string  `json:"seo_title"`
	SEODescription  *string  `json:"seo_description"`
	OGImageURL      *string  `json:"og_image_url"`
	ModerationNotes *string  `json:"moderation_notes"`
	RejectionReason *string  `json:"rejection_reason"`
}

// Payload is a normalized post body: trimmed, sanitized and with derived plain text.
type Payload struct {
	Title          string
	Excerpt        string
	ContentHTML    string
	ContentText    string
	ContentRaw     string
	CoverImageURL  string
	Category       string
	CustomCategory string
	Tags           []string

	Featured        bool
	SEOTitle        string
	SEODescription  string
	OGImageURL      string
	ModerationNotes string
}

// PayloadFromPost builds a payload out of the stored post fields.
func PayloadFromPost(p *models.BlogPostModel) Payload {
	return Payload{
		Title:           p.Title,
		Excerpt:         p.Excerpt,
		ContentHTML:     p.ContentHTML,
		ContentText:     p.ContentText,
		ContentRaw:      p.ContentRaw,
		CoverImageURL:   p.CoverImageURL,
		Category:        p.Category,
		CustomCategory:  p.CustomCategory,
		Tags:            []string(p.Tags),
		Featured:        p.Featured,
		SEOTitle:        p.SEOTitle,
		SEODescription:  p.SEODescription,
		OGImageURL:      p.OGImageURL,
		ModerationNotes: p.ModerationNotes,
	}
}

// Normalizer coerces raw input into a Payload.
type Normalizer struct {
	san Sanitizer
}

func NewNormalizer(san Sanitizer) *Normalizer { return &Normalizer{san: san} }

// Content sanitizes html and derives its plain text. When html is empty and the
// sanitizer can render Markdown, raw editor source is rendered first.
func (n *Normalizer) Content(html, raw string) (safeHTML, text string) {
	html = strings.TrimSpace(html)
	if html == "" && strings.TrimSpace(raw) != "" {
		if md, ok := n.san.(MarkdownRenderer); ok {
			if rendered, err := md.RenderMarkdown(raw); err == nil {
				html = rendered
			}
		}
	}
	safeHTML = n.san.SanitizeHTML(html)
	text = collapseSpace(n.san.ToPlainText(safeHTML))
	return safeHTML, text
}

// Input normalizes the author form.
func (n *Normalizer) Input(in PostInput) Payload {
	p := Payload{
		Title:          strings.TrimSpace(in.Title),
		Excerpt:        strings.TrimSpace(in.Excerpt),
		ContentRaw:     in.ContentRaw,
		CoverImageURL:  strings.TrimSpace(in.CoverImageURL),
		Category:       strings.TrimSpace(in.Category),
		CustomCategory: strings.TrimSpace(in.CustomCategory),
		Tags:           NormalizeTags(in.Tags),
	}
	p.ContentHTML, p.ContentText = n.Content(in.ContentHTML, in.ContentRaw)
	if p.Category != CategoryOther {
		p.CustomCategory = ""
	}
	return p
}

// Merge applies the present fields of patch on top of base.
func (n *Normalizer) Merge(base Payload, patch AutosavePatch) Payload {
	p := base
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*patch.Excerpt)
	}
	if patch.ContentRaw != nil {
		p.ContentRaw = *patch.ContentRaw
	}
	if patch.ContentHTML != nil {
		p.ContentHTML, p.ContentText = n.Content(*patch.ContentHTML, p.ContentRaw)
	}
	if patch.CoverImageURL != nil {
		p.CoverImageURL = strings.TrimSpace(*patch.CoverImageURL)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.CustomCategory != nil {
		p.CustomCategory = strings.TrimSpace(*patch.CustomCategory)
	}
	if patch.Tags != nil {
		p.Tags = NormalizeTags(patch.Tags)
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if patch.SEOTitle != nil {
		p.SEOTitle = strings.TrimSpace(*patch.SEOTitle)
	}
	if patch.SEODescription != nil {
		p.SEODescription = strings.TrimSpace(*patch.SEODescription)
	}
	if patch.OGImageURL != nil {
		p.OGImageURL = strings.TrimSpace(*patch.OGImageURL)
	}
	if patch.ModerationNotes != nil {
		p.ModerationNotes = strings.TrimSpace(*patch.ModerationNotes)
	}
	if p.Category != CategoryOther {
		p.CustomCategory = ""
	}
	return p
}

// NormalizeTags lower-cases, trims, splits comma lists, drops '#' prefixes and duplicates.
// Each tag is cut to 40 characters.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			tag = strings.TrimSpace(strings.TrimLeft(tag, "#"))
			if tag == "" {
				continue
			}
			if utf8.RuneCountInString(tag) > maxTagRunes {
				tag = strings.TrimSpace(string([]rune(tag)[:maxTagRunes]))
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// ReadingTime returns minutes at 200 words per minute, never below 1.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// apply copies the payload onto the post and recomputes derived fields.
func (p Payload) apply(post *models.BlogPostModel) {
	post.Title = p.Title
	post.Excerpt = p.Excerpt
	post.ContentHTML = p.ContentHTML
	post.ContentText = p.ContentText
	post.ContentRaw = p.ContentRaw
	post.CoverImageURL = p.CoverImageURL
	post.Category = p.Category
	post.CustomCategory = p.CustomCategory
	post.Tags = models.StringSlice(append([]string{}, p.Tags...))
	post.ReadingTime = ReadingTime(p.ContentText)
}

// applyAdmin also copies the moderation and SEO fields.
func (p Payload) applyAdmin(post *models.BlogPostModel) {
	p.apply(post)
	post.Featured = p.Featured
	post.SEOTitle = p.SEOTitle
	post.SEODescription = p.SEODescription
	post.OGImageURL = p.OGImageURL
	post.ModerationNotes = p.ModerationNotes
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + truncatedMarker
}
