package slugtracker

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/response"
	"gorm.io/gorm"
)

// Service remembers slugs that content used to carry.
type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Track records that oldSlug for the given content type now points to targetID.
func (s *Service) Track(ctx context.Context, oldSlug, refType, targetID string) error {
	if strings.TrimSpace(oldSlug) == "" {
		return nil
	}
	tracker := models.SlugTrackerModel{
		Slug:     oldSlug,
		Type:     refType,
		TargetID: targetID,
	}
	return s.db.WithContext(ctx).
		Where(models.SlugTrackerModel{Slug: oldSlug, Type: refType}).
		Assign(models.SlugTrackerModel{TargetID: targetID}).
		FirstOrCreate(&tracker).Error
}

// FindBySlug returns the current targetID for the given old slug, or ("", nil).
func (s *Service) FindBySlug(ctx context.Context, slug, refType string) (string, error) {
	var tracker models.SlugTrackerModel
	err := s.db.WithContext(ctx).Where("slug = ? AND type = ?", slug, refType).First(&tracker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tracker.TargetID, nil
}

// Remove forgets a tracked slug.
func (s *Service) Remove(ctx context.Context, slug, refType string) error {
	return s.db.WithContext(ctx).
		Where("slug = ? AND type = ?", slug, refType).
		Delete(&models.SlugTrackerModel{}).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the admin lookup endpoints. mws guard every route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mws ...gin.HandlerFunc) {
	g := rg.Group("/slug-tracker", mws...)
	g.GET("/:type/:slug", h.lookup)
	g.DELETE("/:type/:slug", h.remove)
}

func (h *Handler) lookup(c *gin.Context) {
	refType := c.Param("type")
	slug := c.Param("slug")

	targetID, err := h.svc.FindBySlug(c.Request.Context(), slug, refType)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if targetID == "" {
		response.NotFoundMsg(c, "No content ever used this slug.")
		return
	}
	response.OK(c, gin.H{"target_id": targetID, "type": refType, "slug": slug})
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("slug"), c.Param("type")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
