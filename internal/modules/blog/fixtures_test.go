package blog

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hellorun/server/internal/database"
	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/objectstore"
	"github.com/hellorun/server/internal/pkg/sanitize"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	authorID   = "11111111-1111-1111-1111-111111111111"
	otherID    = "33333333-3333-3333-3333-333333333333"
	adminID    = "22222222-2222-2222-2222-222222222222"
	fakeCDN    = "https://cdn.test/"
	externalJP = "https://images.example.com/start-line.jpg"

	sampleBody = "<p>Easy miles on Sunday kept my legs fresh for the long tempo session on Tuesday morning.</p>"
	goodReason = "Please add more detail about your race splits."
)

var (
	author = Actor{ID: authorID, Role: models.RoleRunner, EmailVerified: true}
	other  = Actor{ID: otherID, Role: models.RoleOrganizer, EmailVerified: true}
	admin  = Actor{ID: adminID, Role: models.RoleAdmin, EmailVerified: true}
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func validInput(title string) PostInput {
	return PostInput{
		Title:       title,
		Excerpt:     "What a week of base building taught me.",
		ContentHTML: sampleBody,
		Category:    "Training",
		Tags:        []string{"Tempo", "#base"},
	}
}

func coverFile() *objectstore.File {
	return &objectstore.File{
		Filename:    "cover.png",
		ContentType: "image/png",
		Size:        4,
		Body:        bytes.NewReader([]byte("\x89PNG")),
	}
}

type fakeStore struct {
	mu      sync.Mutex
	uploads []string
	deleted []string
}

func (s *fakeStore) Upload(_ context.Context, ownerID string, _ objectstore.File) (objectstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("covers/%s/%d.png", ownerID, len(s.uploads)+1)
	s.uploads = append(s.uploads, key)
	return objectstore.Object{Key: key, URL: fakeCDN + key}, nil
}

func (s *fakeStore) Delete(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, keys...)
	return nil
}

func (s *fakeStore) KeyFromPublicURL(u string) string {
	if !strings.HasPrefix(u, fakeCDN) {
		return ""
	}
	return strings.TrimPrefix(u, fakeCDN)
}

type fakeNotifier struct {
	statuses []models.BlogPostStatus
}

func (n *fakeNotifier) NotifyReviewed(_ context.Context, post *models.BlogPostModel) error {
	n.statuses = append(n.statuses, post.Status)
	return nil
}

type memTracker struct {
	slugs map[string]string
}

func (m *memTracker) Track(_ context.Context, oldSlug, refType, targetID string) error {
	m.slugs[refType+"/"+oldSlug] = targetID
	return nil
}

func (m *memTracker) FindBySlug(_ context.Context, slug, refType string) (string, error) {
	return m.slugs[refType+"/"+slug], nil
}

type countingCache struct{ purges int }

func (c *countingCache) PurgePublic(context.Context) error {
	c.purges++
	return nil
}

type fixture struct {
	db       *gorm.DB
	repo     *GormRepository
	svc      *Service
	store    *fakeStore
	notifier *fakeNotifier
	tracker  *memTracker
	cache    *countingCache
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:       db,
		repo:     NewGormRepository(db),
		store:    &fakeStore{},
		notifier: &fakeNotifier{},
		tracker:  &memTracker{slugs: map[string]string{}},
		cache:    &countingCache{},
		now:      time.Date(2026, 4, 12, 7, 30, 0, 0, time.UTC),
	}
	f.svc = f.newService(f.repo)
	return f
}

// newService builds a fully wired service on top of repo.
func (f *fixture) newService(repo Repository) *Service {
	svc := NewService(repo, sanitize.New(), f.store, nil)
	svc.SetNotifier(f.notifier)
	svc.SetSlugTracker(f.tracker)
	svc.SetPublicCache(f.cache)
	svc.now = func() time.Time { return f.now }
	return svc
}

func (f *fixture) draft(t *testing.T, title string) *models.BlogPostModel {
	t.Helper()
	in := validInput(title)
	in.CoverImageURL = externalJP
	post, err := f.svc.CreatePost(context.Background(), author, in, nil)
	require.NoError(t, err)
	return post
}

func (f *fixture) pending(t *testing.T, title string) *models.BlogPostModel {
	t.Helper()
	post := f.draft(t, title)
	post, err := f.svc.SubmitForReview(context.Background(), author, post.ID)
	require.NoError(t, err)
	return post
}

func (f *fixture) published(t *testing.T, title string) *models.BlogPostModel {
	t.Helper()
	post := f.pending(t, title)
	post, err := f.svc.AdminApprove(context.Background(), post.ID, admin)
	require.NoError(t, err)
	return post
}

func (f *fixture) reload(t *testing.T, id string) *models.BlogPostModel {
	t.Helper()
	var p models.BlogPostModel
	require.NoError(t, f.db.Unscoped().First(&p, "id = ?", id).Error)
	return &p
}
