package models

import "time"

// BlogPostStatus is the moderation state of a blog post.
type BlogPostStatus string

const (
	BlogStatusDraft     BlogPostStatus = "draft"
	BlogStatusPending   BlogPostStatus = "pending"
	BlogStatusPublished BlogPostStatus = "published"
	BlogStatusRejected  BlogPostStatus = "rejected"
	BlogStatusArchived  BlogPostStatus = "archived"
)

// BlogPostModel is a community blog post written by a runner or organizer.
type BlogPostModel struct {
	Base
	Slug     string `json:"slug"      gorm:"size:191;uniqueIndex;not null"`
	AuthorID string `json:"author_id" gorm:"type:char(36);index;not null"`

	Title          string      `json:"title"           gorm:"size:191;not null"`
	Excerpt        string      `json:"excerpt"         gorm:"type:text"`
	ContentHTML    string      `json:"content_html"    gorm:"type:longtext"`
	ContentText    string      `json:"content_text"    gorm:"type:longtext"`
	ContentRaw     string      `json:"content_raw"     gorm:"type:longtext"`
	CoverImageURL  string      `json:"cover_image_url" gorm:"type:text"`
	Category       string      `json:"category"        gorm:"size:64;index"`
	CustomCategory string      `json:"custom_category" gorm:"size:80"`
	Tags           StringSlice `json:"tags"            gorm:"type:json;serializer:json"`
	ReadingTime    int         `json:"reading_time"    gorm:"default:1"`

	Featured        bool   `json:"featured"         gorm:"default:false;index"`
	SEOTitle        string `json:"seo_title"        gorm:"size:160"`
	SEODescription  string `json:"seo_description"  gorm:"type:text"`
	OGImageURL      string `json:"og_image_url"     gorm:"type:text"`
	ModerationNotes string `json:"moderation_notes" gorm:"type:text"`

	Status          BlogPostStatus `json:"status"           gorm:"size:16;index;not null;default:'draft'"`
	SubmittedAt     *time.Time     `json:"submitted_at"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	ApprovedBy      *string        `json:"approved_by"      gorm:"type:char(36)"`
	RejectedAt      *time.Time     `json:"rejected_at"`
	RejectedBy      *string        `json:"rejected_by"      gorm:"type:char(36)"`
	RejectionReason string         `json:"rejection_reason" gorm:"type:text"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
	PublishedAt     *time.Time     `json:"published_at"     gorm:"index"`

	IsDeleted bool    `json:"-" gorm:"default:false;index"`
	DeletedBy *string `json:"-" gorm:"type:char(36)"`

	// Version guards read-modify-write cycles against concurrent saves.
	Version int `json:"version" gorm:"not null;default:1"`
}

func (BlogPostModel) TableName() string { return "blog_posts" }

// Clone returns a deep copy suitable for before/after comparisons.
func (p *BlogPostModel) Clone() *BlogPostModel {
	cp := *p
	cp.Tags = p.Tags.Clone()
	cp.SubmittedAt = cloneTime(p.SubmittedAt)
	cp.ApprovedAt = cloneTime(p.ApprovedAt)
	cp.RejectedAt = cloneTime(p.RejectedAt)
	cp.ReviewedAt = cloneTime(p.ReviewedAt)
	cp.PublishedAt = cloneTime(p.PublishedAt)
	cp.ApprovedBy = cloneString(p.ApprovedBy)
	cp.RejectedBy = cloneString(p.RejectedBy)
	cp.DeletedBy = cloneString(p.DeletedBy)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
