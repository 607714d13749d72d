package blog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hellorun/server/internal/models"
	"gorm.io/gorm"
)

// ErrStaleWrite is returned by Save when the stored version moved underneath the caller.
var ErrStaleWrite = errors.New("post was modified concurrently")

// ListFilter narrows post listings. Zero fields do not filter.
type ListFilter struct {
	AuthorID string
	Statuses []models.BlogPostStatus
	Search   string
	Category string
	Tag      string
	Limit    int
	OrderBy  string
}

// Repository is the persistence the moderation service needs.
type Repository interface {
	SlugChecker
	RevisionStore
	Create(ctx context.Context, p *models.BlogPostModel) error
	Save(ctx context.Context, p *models.BlogPostModel) error
	FindByID(ctx context.Context, id string) (*models.BlogPostModel, error)
	FindBySlug(ctx context.Context, slug string) (*models.BlogPostModel, error)
	List(ctx context.Context, f ListFilter) ([]models.BlogPostModel, error)
}

// GormRepository stores posts and revisions through GORM.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository { return &GormRepository{db: db} }

// SlugExists also sees soft-deleted posts so their slugs are never handed out again.
func (r *GormRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int64
	tx := r.db.WithContext(ctx).Unscoped().Model(&models.BlogPostModel{}).Where("slug = ?", slug)
	if excludeID != "" {
		tx = tx.Where("id <> ?", excludeID)
	}
	if err := tx.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepository) Create(ctx context.Context, p *models.BlogPostModel) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// Save writes every column of p if the stored version still matches, then bumps it.
func (r *GormRepository) Save(ctx context.Context, p *models.BlogPostModel) error {
	prev := p.Version
	p.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(p).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(p)
	if res.Error != nil {
		p.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		p.Version = prev
		return ErrStaleWrite
	}
	return nil
}

// FindByID returns (nil, nil) when the post is missing or deleted.
func (r *GormRepository) FindByID(ctx context.Context, id string) (*models.BlogPostModel, error) {
	var p models.BlogPostModel
	err := r.db.WithContext(ctx).Where("is_deleted = ?", false).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindBySlug returns (nil, nil) when no live post carries slug.
func (r *GormRepository) FindBySlug(ctx context.Context, slug string) (*models.BlogPostModel, error) {
	var p models.BlogPostModel
	err := r.db.WithContext(ctx).Where("slug = ? AND is_deleted = ?", slug, false).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) List(ctx context.Context, f ListFilter) ([]models.BlogPostModel, error) {
	tx := r.db.WithContext(ctx).Model(&models.BlogPostModel{}).Where("is_deleted = ?", false)
	if f.AuthorID != "" {
		tx = tx.Where("author_id = ?", f.AuthorID)
	}
	if len(f.Statuses) > 0 {
		tx = tx.Where("status IN ?", f.Statuses)
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.Tag != "" {
		// match the encoding the json serializer wrote, "r&d" is stored as "r\u0026d"
		needle, err := json.Marshal(f.Tag)
		if err != nil {
			return nil, err
		}
		tx = tx.Where("tags LIKE ? ESCAPE '!'", "%"+escapeLike(string(needle))+"%")
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		tx = tx.Where(
			"LOWER(title) LIKE ? ESCAPE '!' OR LOWER(slug) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!' OR LOWER(custom_category) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern, pattern,
		)
	}
	order := f.OrderBy
	if order == "" {
		order = "updated_at DESC"
	}
	tx = tx.Order(order)
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}

	var posts []models.BlogPostModel
	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *GormRepository) CreateRevision(ctx context.Context, rev *models.BlogRevisionModel) error {
	return r.db.WithContext(ctx).Create(rev).Error
}

func (r *GormRepository) ListRevisions(ctx context.Context, postID string, limit int) ([]models.BlogRevisionModel, error) {
	var revs []models.BlogRevisionModel
	tx := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("edited_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	return revs, tx.Find(&revs).Error
}

// ListDeletedCovers returns soft-deleted posts removed before cutoff that still reference a cover.
func (r *GormRepository) ListDeletedCovers(ctx context.Context, cutoff time.Time, limit int) ([]models.BlogPostModel, error) {
	var posts []models.BlogPostModel
	tx := r.db.WithContext(ctx).Unscoped().
		Where("is_deleted = ? AND deleted_at < ? AND cover_image_url <> ?", true, cutoff, "").
		Order("deleted_at ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	return posts, tx.Find(&posts).Error
}

// ClearCover drops the cover reference of a post, deleted or not.
func (r *GormRepository) ClearCover(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Unscoped().
		Model(&models.BlogPostModel{}).
		Where("id = ?", id).
		UpdateColumn("cover_image_url", "").Error
}

// isDuplicateKey recognises unique-index violations across drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint failed")
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
