package handlers

import (
	"net/http"

	"github.com/01moynul/storefront/internal/middleware"
	"github.com/01moynul/storefront/internal/models"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// Signup handles POST /api/auth/signup.
func (h *Handlers) Signup(c *gin.Context) {
	// 1. --- Bind JSON ---
	// Field rules (length, email format, role policy) live in the service so
	// every caller gets the same checks.
	var input models.SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// 2. --- Create the account ---
	result, err := h.Auth.Signup(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, result)
}

// --- User Login ---

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// --- Current User ---

// Profile handles GET /api/auth/profile. AuthMiddleware has already loaded the user.
func (h *Handlers) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
		return
	}
	c.JSON(http.StatusOK, models.NewProfile(user))
}

// UserByToken handles GET /api/auth/user-by-token?token=...
// It is used by the client right after the Google redirect.
func (h *Handlers) UserByToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	user, err := h.Auth.ResolveByToken(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewProfile(user))
}
