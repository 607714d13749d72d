package blog

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hellorun/server/internal/models"
)

// CategoryOther unlocks the free-text custom category.
const CategoryOther = "Other"

// Categories is the closed set of blog categories.
var Categories = []string{
	"Training",
	"Nutrition",
	"Race Reports",
	"Gear",
	"Injury Prevention",
	"Motivation",
	"Events",
	CategoryOther,
}

const (
	titleMin          = 5
	titleMax          = 150
	excerptMax        = 320
	customCategoryMin = 2
	customCategoryMax = 80
	urlMax            = 2000
	contentHTMLMax    = 120000
	contentRawMax     = 150000
	contentTextMin    = 50
	tagsMax           = 12
	seoTitleMax       = 160
	seoDescMax        = 320
	notesMax          = 1000
	rejectionMin      = 15
	rejectionMax      = 500
)

// ValidateOptions tunes which bar a payload is held to.
type ValidateOptions struct {
	// RequireCover is set for the ready-for-review bar.
	RequireCover bool
}

// Validate runs every rule and returns one message per violation. Empty means valid.
func Validate(p Payload, opts ValidateOptions) []string {
	var msgs []string
	check := func(value interface{}, rules ...validation.Rule) {
		if err := validation.Validate(value, rules...); err != nil {
			msgs = append(msgs, err.Error())
		}
	}

	titleMsg := "Title must be between 5 and 150 characters."
	check(p.Title, validation.Required.Error(titleMsg), validation.RuneLength(titleMin, titleMax).Error(titleMsg))
	check(p.Excerpt, validation.RuneLength(0, excerptMax).Error("Excerpt must be at most 320 characters."))

	categoryMsg := "Please choose a valid category."
	check(p.Category, validation.Required.Error(categoryMsg), validation.In(categoryValues()...).Error(categoryMsg))
	if p.Category == CategoryOther {
		customMsg := "Custom category must be between 2 and 80 characters."
		check(p.CustomCategory,
			validation.Required.Error(customMsg),
			validation.RuneLength(customCategoryMin, customCategoryMax).Error(customMsg))
	}

	if p.CoverImageURL != "" {
		check(p.CoverImageURL, validation.RuneLength(0, urlMax).Error("Cover image URL must be at most 2000 characters."))
		check(p.CoverImageURL, validation.By(httpURL("Cover image URL must be a valid http(s) URL.")))
	} else if opts.RequireCover {
		msgs = append(msgs, "A cover image is required before submitting for review.")
	}

	check(p.ContentHTML, validation.RuneLength(0, contentHTMLMax).Error("Content is too long (max 120000 characters)."))
	contentMsg := "Content must contain at least 50 characters of text."
	check(p.ContentText, validation.Required.Error(contentMsg), validation.RuneLength(contentTextMin, 0).Error(contentMsg))
	check(p.Tags, validation.Length(0, tagsMax).Error("Use at most 12 tags."))

	check(p.ContentRaw, validation.RuneLength(0, contentRawMax).Error("Editor source is too long (max 150000 characters)."))
	check(p.SEOTitle, validation.RuneLength(0, seoTitleMax).Error("SEO title must be at most 160 characters."))
	check(p.SEODescription, validation.RuneLength(0, seoDescMax).Error("SEO description must be at most 320 characters."))
	if p.OGImageURL != "" {
		check(p.OGImageURL, validation.RuneLength(0, urlMax).Error("OG image URL must be at most 2000 characters."))
		check(p.OGImageURL, validation.By(httpURL("OG image URL must be a valid http(s) URL.")))
	}
	check(p.ModerationNotes, validation.RuneLength(0, notesMax).Error("Moderation notes must be at most 1000 characters."))

	return msgs
}

// ValidateReadyForReview holds a stored post to the submission bar.
func ValidateReadyForReview(p *models.BlogPostModel) []string {
	return Validate(PayloadFromPost(p), ValidateOptions{RequireCover: true})
}

// ValidateRejectionReason checks the reason an admin gives when rejecting.
func ValidateRejectionReason(reason string) []string {
	msg := "Rejection reason must be between 15 and 500 characters."
	err := validation.Validate(strings.TrimSpace(reason),
		validation.Required.Error(msg),
		validation.RuneLength(rejectionMin, rejectionMax).Error(msg))
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

// IsCategory reports whether name is one of the allowed categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

func categoryValues() []interface{} {
	out := make([]interface{}, len(Categories))
	for i, c := range Categories {
		out[i] = c
	}
	return out
}

func httpURL(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.New(msg)
		}
		return nil
	}
}
