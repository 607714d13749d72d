package blog

import (
	"strings"
	"testing"

	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/sanitize"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	long := strings.Repeat("x", 45)
	got := NormalizeTags([]string{"Trail, #Hills", "trail", "   ", "##Speed", long})
	assert.Equal(t, []string{"trail", "hills", "speed", strings.Repeat("x", maxTagRunes)}, got)
	assert.Equal(t, []string{}, NormalizeTags(nil))
}

func TestReadingTime(t *testing.T) {
	words := func(n int) string { return strings.TrimSpace(strings.Repeat("stride ", n)) }
	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 1, ReadingTime(words(200)))
	assert.Equal(t, 2, ReadingTime(words(201)))
	assert.Equal(t, 2, ReadingTime(words(400)))
	assert.Equal(t, 3, ReadingTime(words(401)))
}

func TestNormalizer_Input(t *testing.T) {
	n := NewNormalizer(sanitize.New())
	p := n.Input(PostInput{
		Title:          "  Long run fuel  ",
		ContentHTML:    `<p>Gels <script>alert(1)</script>every <b>45</b> minutes</p><p>Water at every station.</p>`,
		Category:       "Nutrition",
		CustomCategory: "Dropped",
		Tags:           []string{"Fuel", "fuel"},
	})

	assert.Equal(t, "Long run fuel", p.Title)
	assert.NotContains(t, p.ContentHTML, "script")
	assert.Contains(t, p.ContentHTML, "<b>45</b>")
	assert.Equal(t, "Gels every 45 minutes Water at every station.", p.ContentText)
	assert.Empty(t, p.CustomCategory)
	assert.Equal(t, []string{"fuel"}, p.Tags)
}

func TestNormalizer_RendersMarkdownSource(t *testing.T) {
	n := NewNormalizer(sanitize.New())
	p := n.Input(PostInput{ContentRaw: "# Race week\n\nSleep **more** than usual."})

	assert.Contains(t, p.ContentHTML, "<strong>more</strong>")
	assert.Equal(t, "Race week Sleep more than usual.", p.ContentText)
	assert.Equal(t, "# Race week\n\nSleep **more** than usual.", p.ContentRaw)
}

func TestNormalizer_Merge(t *testing.T) {
	n := NewNormalizer(sanitize.New())
	base := PayloadFromPost(&models.BlogPostModel{
		Title:          "Original title",
		Category:       CategoryOther,
		CustomCategory: "Track nerds",
		Tags:           models.StringSlice{"track"},
		SEOTitle:       "Keep me",
	})

	title := " Updated title "
	category := "Gear"
	merged := n.Merge(base, AutosavePatch{Title: &title, Category: &category, Tags: []string{}})

	assert.Equal(t, "Updated title", merged.Title)
	assert.Equal(t, "Gear", merged.Category)
	assert.Empty(t, merged.CustomCategory)
	assert.Empty(t, merged.Tags)
	assert.Equal(t, "Keep me", merged.SEOTitle)

	untouched := n.Merge(base, AutosavePatch{})
	assert.Equal(t, base, untouched)
}

func TestPayloadApply_RecomputesReadingTime(t *testing.T) {
	post := &models.BlogPostModel{ReadingTime: 9}
	Payload{ContentText: strings.Repeat("km ", 250)}.apply(post)
	assert.Equal(t, 2, post.ReadingTime)
}
