package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/models"
	"github.com/gin-gonic/gin"
)

// userKey is the gin context key the authenticated user is stored under.
const userKey = "user"

// TokenResolver turns a bearer token into the current user.
type TokenResolver interface {
	ResolveByToken(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware creates a gin.HandlerFunc that acts as our "security guard".
// The user is loaded fresh on every request, so role changes apply immediately.
func AuthMiddleware(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		user, err := resolver.ResolveByToken(c.Request.Context(), tokenString)
		if err != nil {
			kind := apperr.KindOf(err)
			if kind.Status() == http.StatusUnauthorized {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, token failed"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify session"})
			return
		}

		// 3. --- Success ---
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireRole only lets users holding role through. It must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}
		if user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: " + role + " role required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user AuthMiddleware stored, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
