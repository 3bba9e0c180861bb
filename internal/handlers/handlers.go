package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/config"
	"github.com/01moynul/storefront/internal/oauth"
	"github.com/01moynul/storefront/internal/services"
	"github.com/gin-gonic/gin"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Auth     *services.AuthService
	Catalog  *services.CatalogService
	Checkout *services.CheckoutService
	OAuth    oauth.Provider // nil when Google login is not configured
	Config   *config.Config
}

// respondError maps an error to a status and a {"error": ...} body.
// Classified errors carry a caller-safe message; anything else is a 500 whose
// detail is only shown outside production.
func (h *Handlers) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
		status := appErr.Kind.Status()
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "path", c.FullPath(), "kind", appErr.Kind.String(), "error", err)
		}

		body := gin.H{"error": appErr.Message}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		c.JSON(status, body)
		return
	}

	slog.Error("internal error", "path", c.FullPath(), "error", err)
	body := gin.H{"error": "Internal server error"}
	if h.Config == nil || !h.Config.IsProduction() {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
