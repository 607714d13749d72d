package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/hellorun/server/internal/models"
)

const (
	revisionStringLimit = 12000
	// ReviewRevisionLimit is how many revisions the admin review page shows.
	ReviewRevisionLimit = 25
)

// TrackedFields are the post attributes an admin autosave is audited on, in display order.
var TrackedFields = []string{
	"title",
	"slug",
	"excerpt",
	"contentHtml",
	"contentRaw",
	"coverImageUrl",
	"category",
	"customCategory",
	"tags",
	"status",
	"featured",
	"seoTitle",
	"seoDescription",
	"ogImageUrl",
	"moderationNotes",
	"readingTime",
}

// RevisionStore persists and lists revisions.
type RevisionStore interface {
	CreateRevision(ctx context.Context, rev *models.BlogRevisionModel) error
	ListRevisions(ctx context.Context, postID string, limit int) ([]models.BlogRevisionModel, error)
}

// Snapshot captures the tracked fields of p.
func Snapshot(p *models.BlogPostModel) map[string]interface{} {
	tags := []string(p.Tags.Clone())
	if tags == nil {
		tags = []string{}
	}
	return map[string]interface{}{
		"title":           p.Title,
		"slug":            p.Slug,
		"excerpt":         p.Excerpt,
		"contentHtml":     p.ContentHTML,
		"contentRaw":      p.ContentRaw,
		"coverImageUrl":   p.CoverImageURL,
		"category":        p.Category,
		"customCategory":  p.CustomCategory,
		"tags":            tags,
		"status":          string(p.Status),
		"featured":        p.Featured,
		"seoTitle":        p.SEOTitle,
		"seoDescription":  p.SEODescription,
		"ogImageUrl":      p.OGImageURL,
		"moderationNotes": p.ModerationNotes,
		"readingTime":     p.ReadingTime,
	}
}

// Diff lists the tracked fields whose JSON encodings differ, in TrackedFields order.
func Diff(before, after map[string]interface{}) []string {
	changed := []string{}
	for _, field := range TrackedFields {
		if !sameJSON(before[field], after[field]) {
			changed = append(changed, field)
		}
	}
	return changed
}

func sameJSON(a, b interface{}) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// RevisionRecorder writes audit entries for admin edits.
type RevisionRecorder struct {
	store RevisionStore
	now   func() time.Time
}

func NewRevisionRecorder(store RevisionStore) *RevisionRecorder {
	return &RevisionRecorder{store: store, now: time.Now}
}

// Record stores the changed subset of before/after. Nothing is written when changed is empty.
func (r *RevisionRecorder) Record(ctx context.Context, postID, actor string, changed []string, before, after map[string]interface{}) (*models.BlogRevisionModel, error) {
	if len(changed) == 0 {
		return nil, nil
	}
	rev := &models.BlogRevisionModel{
		PostID:        postID,
		EditedBy:      actorRef(actor),
		Source:        models.BlogRevisionAdminAutosave,
		ChangedFields: models.StringSlice(append([]string{}, changed...)),
		Before:        restrict(before, changed),
		After:         restrict(after, changed),
		EditedAt:      r.now(),
	}
	if err := r.store.CreateRevision(ctx, rev); err != nil {
		return nil, storageErr("record revision", err)
	}
	return rev, nil
}

// Recent returns the newest revisions first.
func (r *RevisionRecorder) Recent(ctx context.Context, postID string, limit int) ([]models.BlogRevisionModel, error) {
	if limit <= 0 {
		limit = ReviewRevisionLimit
	}
	revs, err := r.store.ListRevisions(ctx, postID, limit)
	if err != nil {
		return nil, storageErr("list revisions", err)
	}
	return revs, nil
}

func restrict(snapshot map[string]interface{}, fields []string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		v := snapshot[f]
		if s, ok := v.(string); ok {
			v = truncateRunes(s, revisionStringLimit)
		}
		out[f] = v
	}
	return out
}
