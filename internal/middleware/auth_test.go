package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/database"
	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/jwt"
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

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":       CurrentUserID(c),
		"role":     CurrentRole(c),
		"verified": CurrentEmailVerified(c),
	})
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	user := models.UserModel{Email: "kip@example.com", Role: models.RoleAdmin, EmailVerified: true}
	require.NoError(t, db.Create(&user).Error)

	r := gin.New()
	r.GET("/me", Auth(db), whoAmI)
	r.GET("/admin", Auth(db), AdminOnly(), whoAmI)
	r.GET("/maybe", OptionalAuth(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": IsAuthenticated(c)})
	})

	// the token claims runner, the users table wins
	token, err := jwt.Sign(user.ID, models.RoleRunner, time.Hour)
	require.NoError(t, err)

	get := func(path, authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+user.ID+`","role":"admin","verified":true}`, w.Body.String())

	assert.Equal(t, http.StatusOK, get("/admin", "bearer "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/me", "Bearer not-a-jwt").Code)

	assert.JSONEq(t, `{"authenticated":false}`, get("/maybe", "").Body.String())
	assert.JSONEq(t, `{"authenticated":true}`, get("/maybe", token).Body.String())

	require.NoError(t, db.Model(&user).Update("role", models.RoleRunner).Error)
	assert.Equal(t, http.StatusForbidden, get("/admin", "Bearer "+token).Code)

	unknown, err := jwt.Sign("44444444-4444-4444-4444-444444444444", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get("/me", "Bearer "+unknown).Code)
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("  Bearer   abc "))
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Equal(t, "", NormalizeToken("   "))
}

func TestRedisBackedMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(
		RateLimit(nil, RateLimitOptions{Name: "autosave", Max: 1}, nil),
		Idempotence(nil),
		PublicCache(nil, PublicCacheOptions{}),
	)
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	n, err := PurgePublicCache(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
