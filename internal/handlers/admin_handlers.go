package handlers

import (
	"net/http"

	"github.com/01moynul/storefront/internal/middleware"
	"github.com/gin-gonic/gin"
)

//
// --- Admin-Only Handlers ---
//

// UpdateRoleInput is the body of PATCH /api/admin/users/:id/role.
type UpdateRoleInput struct {
	Role string `json:"role" binding:"required"`
}

// UpdateUserRole promotes or demotes a user. Tokens already issued to that
// user see the new role on their next request.
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	var input UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role is required"})
		return
	}

	profile, err := h.Auth.SetRole(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), input.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User role updated",
		"user":    profile,
	})
}
