package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sendTimeout = 30 * time.Second

// Mailer is the part of mail.Sender the notifier uses.
type Mailer interface {
	SendReviewDecision(ctx context.Context, to string, data mail.ReviewDecisionData) error
}

// ReviewNotifier e-mails authors when an editor approves or rejects their post.
// Delivery happens in the background; failures are only logged.
type ReviewNotifier struct {
	db       *gorm.DB
	mailer   Mailer
	baseURL  string
	log      *zap.Logger
	dispatch func(func())
}

func NewReviewNotifier(db *gorm.DB, mailer Mailer, publicBaseURL string, log *zap.Logger) *ReviewNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewNotifier{
		db:       db,
		mailer:   mailer,
		baseURL:  publicBaseURL,
		log:      log.Named("notify"),
		dispatch: func(fn func()) { go fn() },
	}
}

// NotifyReviewed looks up the author and queues the e-mail. Only the lookup can fail.
func (n *ReviewNotifier) NotifyReviewed(ctx context.Context, post *models.BlogPostModel) error {
	var approved bool
	switch post.Status {
	case models.BlogStatusPublished:
		approved = true
	case models.BlogStatusRejected:
	default:
		return nil
	}

	var author models.UserModel
	err := n.db.WithContext(ctx).First(&author, "id = ?", post.AuthorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		n.log.Warn("author not found, skipping review mail", zap.String("post_id", post.ID), zap.String("author_id", post.AuthorID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load author: %w", err)
	}

	data := mail.ReviewDecisionData{
		AuthorName: author.DisplayName(),
		Title:      post.Title,
		Approved:   approved,
		Reason:     post.RejectionReason,
		LinkURL:    n.link(post, approved),
	}
	to := author.Email
	postID := post.ID

	n.dispatch(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.mailer.SendReviewDecision(sendCtx, to, data); err != nil {
			n.log.Warn("review mail failed", zap.String("post_id", postID), zap.Error(err))
			return
		}
		n.log.Info("review mail sent", zap.String("post_id", postID), zap.Bool("approved", approved))
	})
	return nil
}

func (n *ReviewNotifier) link(post *models.BlogPostModel, approved bool) string {
	if n.baseURL == "" {
		return ""
	}
	if approved {
		return n.baseURL + "/blog/" + url.PathEscape(post.Slug)
	}
	return n.baseURL + "/blog/me/posts/" + url.PathEscape(post.ID) + "/edit"
}
