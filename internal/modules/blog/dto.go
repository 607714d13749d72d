package blog

import (
	"time"

	"github.com/hellorun/server/internal/models"
)

// updateRequest is the author edit form. RemoveCover drops the stored cover.
type updateRequest struct {
	PostInput
	RemoveCover bool `json:"remove_cover" form:"remove_cover"`
}

type rejectRequest struct {
	Reason string `json:"reason" form:"reason"`
}

// publicPostResponse is what anonymous readers see. Moderation fields stay private.
type publicPostResponse struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	AuthorID       string     `json:"author_id"`
	Title          string     `json:"title"`
	Excerpt        string     `json:"excerpt"`
	ContentHTML    string     `json:"content_html,omitempty"`
	CoverImageURL  string     `json:"cover_image_url"`
	Category       string     `json:"category"`
	CustomCategory string     `json:"custom_category,omitempty"`
	Tags           []string   `json:"tags"`
	ReadingTime    int        `json:"reading_time"`
	Featured       bool       `json:"featured"`
	SEOTitle       string     `json:"seo_title,omitempty"`
	SEODescription string     `json:"seo_description,omitempty"`
	OGImageURL     string     `json:"og_image_url,omitempty"`
	PublishedAt    *time.Time `json:"published_at"`
}

func toPublicPost(p *models.BlogPostModel, withContent bool) publicPostResponse {
	tags := []string(p.Tags.Clone())
	if tags == nil {
		tags = []string{}
	}
	out := publicPostResponse{
		ID:             p.ID,
		Slug:           p.Slug,
		AuthorID:       p.AuthorID,
		Title:          p.Title,
		Excerpt:        p.Excerpt,
		CoverImageURL:  p.CoverImageURL,
		Category:       p.Category,
		CustomCategory: p.CustomCategory,
		Tags:           tags,
		ReadingTime:    p.ReadingTime,
		Featured:       p.Featured,
		SEOTitle:       p.SEOTitle,
		SEODescription: p.SEODescription,
		OGImageURL:     p.OGImageURL,
		PublishedAt:    p.PublishedAt,
	}
	if withContent {
		out.ContentHTML = p.ContentHTML
	}
	return out
}

func toPublicPosts(posts []models.BlogPostModel) []publicPostResponse {
	out := make([]publicPostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, toPublicPost(&posts[i], false))
	}
	return out
}
