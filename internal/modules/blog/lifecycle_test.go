package blog

import (
	"testing"
	"time"

	"github.com/hellorun/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestIsEditable(t *testing.T) {
	assert.True(t, IsEditable(models.BlogStatusDraft))
	assert.True(t, IsEditable(models.BlogStatusPending))
	assert.True(t, IsEditable(models.BlogStatusRejected))
	assert.False(t, IsEditable(models.BlogStatusPublished))
	assert.False(t, IsEditable(models.BlogStatusArchived))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Published ")
	assert.True(t, ok)
	assert.Equal(t, models.BlogStatusPublished, s)

	_, ok = ParseStatus("deleted")
	assert.False(t, ok)
}

func TestSubmit_ResetsReview(t *testing.T) {
	reviewer := adminID
	p := &models.BlogPostModel{
		Status:          models.BlogStatusRejected,
		RejectedAt:      &t0,
		RejectedBy:      &reviewer,
		RejectionReason: goodReason,
		ReviewedAt:      &t0,
	}
	later := t0.Add(time.Hour)
	require.NoError(t, Submit(p, later))

	assert.Equal(t, models.BlogStatusPending, p.Status)
	assert.Equal(t, later, *p.SubmittedAt)
	assert.Nil(t, p.RejectedAt)
	assert.Nil(t, p.RejectedBy)
	assert.Empty(t, p.RejectionReason)
	assert.Nil(t, p.ReviewedAt)
}

func TestTransitions_RejectWrongStatus(t *testing.T) {
	published := func() *models.BlogPostModel { return &models.BlogPostModel{Status: models.BlogStatusPublished} }
	draft := func() *models.BlogPostModel { return &models.BlogPostModel{Status: models.BlogStatusDraft} }

	var conflict *StateConflictError
	require.ErrorAs(t, Submit(published(), t0), &conflict)
	assert.Equal(t, ActionSubmit, conflict.Action)
	require.ErrorAs(t, Approve(draft(), adminID, t0), &conflict)
	assert.Equal(t, models.BlogStatusDraft, conflict.Status)
	require.ErrorAs(t, Reject(published(), adminID, goodReason, t0), &conflict)
	require.ErrorAs(t, Archive(draft(), t0), &conflict)
	assert.Equal(t, ActionArchive, conflict.Action)
}

func TestApproveThenArchive(t *testing.T) {
	p := &models.BlogPostModel{Status: models.BlogStatusPending, RejectionReason: "stale"}
	require.NoError(t, Approve(p, adminID, t0))
	assert.Equal(t, models.BlogStatusPublished, p.Status)
	assert.Equal(t, t0, *p.PublishedAt)
	assert.Equal(t, t0, *p.ApprovedAt)
	assert.Equal(t, adminID, *p.ApprovedBy)
	assert.Empty(t, p.RejectionReason)

	later := t0.Add(24 * time.Hour)
	require.NoError(t, Archive(p, later))
	assert.Equal(t, models.BlogStatusArchived, p.Status)
	assert.Equal(t, later, *p.ReviewedAt)
	assert.Equal(t, t0, *p.PublishedAt)
}

func TestReject_ValidatesReasonFirst(t *testing.T) {
	p := &models.BlogPostModel{Status: models.BlogStatusPending}
	_, ok := IsValidation(Reject(p, adminID, "nope", t0))
	assert.True(t, ok)
	assert.Equal(t, models.BlogStatusPending, p.Status)
}

func TestApplyAdminStatus(t *testing.T) {
	t.Run("draft keeps publishedAt", func(t *testing.T) {
		p := &models.BlogPostModel{Status: models.BlogStatusPending}
		require.NoError(t, Approve(p, adminID, t0))
		require.NoError(t, ApplyAdminStatus(p, models.BlogStatusDraft, adminID, "", t0))
		assert.Equal(t, models.BlogStatusDraft, p.Status)
		assert.Nil(t, p.ApprovedAt)
		assert.Nil(t, p.ApprovedBy)
		assert.Nil(t, p.ReviewedAt)
		assert.Nil(t, p.SubmittedAt)
		require.NotNil(t, p.PublishedAt)
	})

	t.Run("pending keeps earlier submission", func(t *testing.T) {
		submitted := t0.Add(-time.Hour)
		p := &models.BlogPostModel{Status: models.BlogStatusRejected, SubmittedAt: &submitted, ReviewedAt: &t0}
		require.NoError(t, ApplyAdminStatus(p, models.BlogStatusPending, adminID, "", t0))
		assert.Equal(t, submitted, *p.SubmittedAt)
		assert.Equal(t, t0, *p.ReviewedAt)
	})

	t.Run("rejected reuses stored reason", func(t *testing.T) {
		p := &models.BlogPostModel{Status: models.BlogStatusArchived, RejectionReason: goodReason}
		require.NoError(t, ApplyAdminStatus(p, models.BlogStatusRejected, adminID, "", t0))
		assert.Equal(t, models.BlogStatusRejected, p.Status)
		assert.Equal(t, goodReason, p.RejectionReason)
		assert.Equal(t, adminID, *p.RejectedBy)
	})

	t.Run("published from anywhere", func(t *testing.T) {
		p := &models.BlogPostModel{Status: models.BlogStatusArchived}
		require.NoError(t, ApplyAdminStatus(p, models.BlogStatusPublished, adminID, "", t0))
		assert.Equal(t, models.BlogStatusPublished, p.Status)
		assert.Equal(t, t0, *p.PublishedAt)
	})

	t.Run("unknown target", func(t *testing.T) {
		p := &models.BlogPostModel{Status: models.BlogStatusDraft}
		msgs, ok := IsValidation(ApplyAdminStatus(p, "deleted", adminID, "", t0))
		require.True(t, ok)
		assert.Equal(t, []string{"Unknown status."}, msgs)
	})
}
