package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/jwt"
	"github.com/hellorun/server/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID        = "user_id"
	ContextKeyRole          = "user_role"
	ContextKeyEmailVerified = "user_email_verified"
)

// Auth returns a middleware that enforces JWT authentication. Role and email
// verification are read from the users table so revocations apply immediately.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth sets the user if a valid token is present, but does not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := authenticate(db, extractToken(c)); err == nil {
			setUser(c, user)
		}
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) != models.RoleAdmin {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

func authenticate(db *gorm.DB, rawToken string) (*models.UserModel, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}
	var user models.UserModel
	if err := db.Select("id", "role", "email_verified").First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func setUser(c *gin.Context, u *models.UserModel) {
	c.Set(ContextKeyUserID, u.ID)
	c.Set(ContextKeyRole, u.Role)
	c.Set(ContextKeyEmailVerified, u.EmailVerified)
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// CurrentRole extracts the authenticated user's role from context.
func CurrentRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// CurrentEmailVerified reports whether the authenticated user verified their address.
func CurrentEmailVerified(c *gin.Context) bool {
	return c.GetBool(ContextKeyEmailVerified)
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
