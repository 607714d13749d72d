package slugtracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestService_TrackAndFind(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, svc.Track(ctx, "old-title", "blog_post", "post-1"))
	require.NoError(t, svc.Track(ctx, "", "blog_post", "post-1"))

	id, err := svc.FindBySlug(ctx, "old-title", "blog_post")
	require.NoError(t, err)
	assert.Equal(t, "post-1", id)

	// a slug handed to another post later points at the newest owner
	require.NoError(t, svc.Track(ctx, "old-title", "blog_post", "post-2"))
	id, err = svc.FindBySlug(ctx, "old-title", "blog_post")
	require.NoError(t, err)
	assert.Equal(t, "post-2", id)

	id, err = svc.FindBySlug(ctx, "old-title", "event")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, svc.Remove(ctx, "old-title", "blog_post"))
	id, err = svc.FindBySlug(ctx, "old-title", "blog_post")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(setupTestDB(t))
	require.NoError(t, svc.Track(context.Background(), "first-run", "blog_post", "post-9"))

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := serve(http.MethodGet, "/api/slug-tracker/blog_post/first-run")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"target_id":"post-9","type":"blog_post","slug":"first-run"}`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, serve(http.MethodDelete, "/api/slug-tracker/blog_post/first-run").Code)
	assert.Equal(t, http.StatusNotFound, serve(http.MethodGet, "/api/slug-tracker/blog_post/first-run").Code)
}
