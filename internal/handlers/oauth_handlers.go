package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/01moynul/storefront/internal/oauth"
	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookie = "google_oauth_state"
	oauthStateMaxAge = 300 // seconds
)

// GoogleLogin handles GET /api/auth/google: set a state cookie and send the
// browser to Google's consent page.
func (h *Handlers) GoogleLogin(c *gin.Context) {
	if h.OAuth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google login is not configured"})
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Lax is required so the cookie survives the cross-site redirect back.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.OAuth.AuthCodeURL(state))
}

// GoogleCallback handles GET /api/auth/google/callback. Every outcome is a
// redirect to the client: success carries the token, failure carries nothing.
func (h *Handlers) GoogleCallback(c *gin.Context) {
	if h.OAuth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google login is not configured"})
		return
	}

	// 1. --- Check state and clear the cookie ---
	state, err := c.Cookie(oauthStateCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	if err != nil || state == "" || c.Query("state") != state {
		slog.Warn("google callback rejected", "reason", "state mismatch")
		h.redirectOAuthFailure(c)
		return
	}
	if reason := c.Query("error"); reason != "" {
		slog.Warn("google callback rejected", "reason", reason)
		h.redirectOAuthFailure(c)
		return
	}
	code := c.Query("code")
	if code == "" {
		slog.Warn("google callback rejected", "reason", "missing code")
		h.redirectOAuthFailure(c)
		return
	}

	// 2. --- Exchange the code and verify the identity ---
	profile, err := h.OAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		slog.Error("google code exchange failed", "error", err)
		h.redirectOAuthFailure(c)
		return
	}

	// 3. --- Find, link or create the user ---
	result, err := h.Auth.OAuthCallback(c.Request.Context(), profile)
	if err != nil {
		slog.Error("google login failed", "error", err)
		h.redirectOAuthFailure(c)
		return
	}

	c.Redirect(http.StatusFound, h.Config.ClientURL+"/auth/google/success?token="+url.QueryEscape(result.Token))
}

// GoogleFailure handles GET /api/auth/google/failure for API callers.
func (h *Handlers) GoogleFailure(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Google authentication failed"})
}

func (h *Handlers) redirectOAuthFailure(c *gin.Context) {
	c.Redirect(http.StatusFound, h.Config.ClientURL+"/auth/google/failure")
}
