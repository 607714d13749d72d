package blog

import (
	"strings"
	"time"

	"github.com/hellorun/server/internal/models"
)

// Actions named in state conflicts.
const (
	ActionEdit    = "edit"
	ActionSubmit  = "submit"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionArchive = "archive"
	ActionSave    = "save"
)

// EditableStatuses are the statuses in which the author keeps write access.
var EditableStatuses = []models.BlogPostStatus{
	models.BlogStatusDraft,
	models.BlogStatusPending,
	models.BlogStatusRejected,
}

// IsEditable reports whether an author may still change a post in status s.
func IsEditable(s models.BlogPostStatus) bool {
	for _, e := range EditableStatuses {
		if e == s {
			return true
		}
	}
	return false
}

// ParseStatus maps user input onto a known status.
func ParseStatus(raw string) (models.BlogPostStatus, bool) {
	s := models.BlogPostStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case models.BlogStatusDraft, models.BlogStatusPending, models.BlogStatusPublished,
		models.BlogStatusRejected, models.BlogStatusArchived:
		return s, true
	}
	return "", false
}

func requireStatus(p *models.BlogPostModel, action string, allowed ...models.BlogPostStatus) error {
	for _, s := range allowed {
		if p.Status == s {
			return nil
		}
	}
	return &StateConflictError{Status: p.Status, Action: action}
}

func requireEditable(p *models.BlogPostModel, action string) error {
	return requireStatus(p, action, EditableStatuses...)
}

// Submit moves an author's post into the review queue.
func Submit(p *models.BlogPostModel, now time.Time) error {
	if err := requireEditable(p, ActionSubmit); err != nil {
		return err
	}
	p.Status = models.BlogStatusPending
	p.SubmittedAt = &now
	clearApproval(p)
	ClearRejection(p)
	p.ReviewedAt = nil
	return nil
}

// Approve publishes a pending post.
func Approve(p *models.BlogPostModel, actor string, now time.Time) error {
	if err := requireStatus(p, ActionApprove, models.BlogStatusPending); err != nil {
		return err
	}
	markPublished(p, actor, now)
	return nil
}

// Reject sends a pending post back to its author with a reason.
func Reject(p *models.BlogPostModel, actor, reason string, now time.Time) error {
	if err := requireStatus(p, ActionReject, models.BlogStatusPending); err != nil {
		return err
	}
	if msgs := ValidateRejectionReason(reason); len(msgs) > 0 {
		return newValidationError(msgs...)
	}
	markRejected(p, actor, strings.TrimSpace(reason), now)
	return nil
}

// Archive takes a published post off the public listing.
func Archive(p *models.BlogPostModel, now time.Time) error {
	if err := requireStatus(p, ActionArchive, models.BlogStatusPublished); err != nil {
		return err
	}
	p.Status = models.BlogStatusArchived
	p.ReviewedAt = &now
	return nil
}

// ApplyAdminStatus forces a post into target from any status, applying the
// bookkeeping of the matching transition. reason is only read for rejected.
func ApplyAdminStatus(p *models.BlogPostModel, target models.BlogPostStatus, actor, reason string, now time.Time) error {
	switch target {
	case models.BlogStatusDraft:
		p.Status = models.BlogStatusDraft
		p.SubmittedAt = nil
		p.ReviewedAt = nil
		clearApproval(p)
		ClearRejection(p)
	case models.BlogStatusPending:
		p.Status = models.BlogStatusPending
		if p.SubmittedAt == nil {
			p.SubmittedAt = &now
		}
		clearApproval(p)
		ClearRejection(p)
	case models.BlogStatusPublished:
		markPublished(p, actor, now)
	case models.BlogStatusRejected:
		if strings.TrimSpace(reason) == "" {
			reason = p.RejectionReason
		}
		if msgs := ValidateRejectionReason(reason); len(msgs) > 0 {
			return newValidationError(msgs...)
		}
		markRejected(p, actor, strings.TrimSpace(reason), now)
	case models.BlogStatusArchived:
		p.Status = models.BlogStatusArchived
		p.ReviewedAt = &now
	default:
		return newValidationError("Unknown status.")
	}
	return nil
}

// ClearRejection drops the rejection pair and reason.
func ClearRejection(p *models.BlogPostModel) {
	p.RejectedAt = nil
	p.RejectedBy = nil
	p.RejectionReason = ""
}

func clearApproval(p *models.BlogPostModel) {
	p.ApprovedAt = nil
	p.ApprovedBy = nil
}

func markPublished(p *models.BlogPostModel, actor string, now time.Time) {
	p.Status = models.BlogStatusPublished
	p.PublishedAt = &now
	p.ApprovedAt = &now
	p.ApprovedBy = actorRef(actor)
	p.ReviewedAt = &now
	ClearRejection(p)
}

func markRejected(p *models.BlogPostModel, actor, reason string, now time.Time) {
	p.Status = models.BlogStatusRejected
	p.RejectedAt = &now
	p.RejectedBy = actorRef(actor)
	p.RejectionReason = reason
	p.ReviewedAt = &now
	clearApproval(p)
}

func actorRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
