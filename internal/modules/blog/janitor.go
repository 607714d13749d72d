package blog

import (
	"context"
	"time"

	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/objectstore"
	"go.uber.org/zap"
)

const janitorBatch = 100

// DeletedCoverStore finds and detaches covers of deleted posts.
type DeletedCoverStore interface {
	ListDeletedCovers(ctx context.Context, cutoff time.Time, limit int) ([]models.BlogPostModel, error)
	ClearCover(ctx context.Context, id string) error
}

// CoverJanitor removes uploaded covers of posts deleted longer than the retention period.
type CoverJanitor struct {
	posts     DeletedCoverStore
	store     objectstore.Store
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewCoverJanitor(posts DeletedCoverStore, store objectstore.Store, retention time.Duration, log *zap.Logger) *CoverJanitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &CoverJanitor{posts: posts, store: store, retention: retention, log: log.Named("cover-janitor"), now: time.Now}
}

// Run processes one batch and returns how many posts had their cover removed.
// Covers hosted outside our bucket are only detached.
func (j *CoverJanitor) Run(ctx context.Context) (int, error) {
	posts, err := j.posts.ListDeletedCovers(ctx, j.now().Add(-j.retention), janitorBatch)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, p := range posts {
		if key := j.store.KeyFromPublicURL(p.CoverImageURL); key != "" {
			if err := j.store.Delete(ctx, []string{key}); err != nil {
				j.log.Warn("delete cover failed", zap.String("post_id", p.ID), zap.String("key", key), zap.Error(err))
				continue
			}
		}
		if err := j.posts.ClearCover(ctx, p.ID); err != nil {
			return done, err
		}
		done++
	}
	if done > 0 {
		j.log.Info("removed covers of deleted posts", zap.Int("count", done))
	}
	return done, nil
}
