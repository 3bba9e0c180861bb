package handlers

import (
	"net/http"

	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Checkout (the cart lives on the client) ---
//

// CheckoutInput is the cart snapshot the client submits.
type CheckoutInput struct {
	CartItems []models.CartLine `json:"cartItems"`
}

// CreateCheckoutSession handles POST /create-checkout-session.
// The submitted prices are used as-is; the server does not re-read the catalog.
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.Checkout.CreateSession(c.Request.Context(), input.CartItems)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      session.ID,
		"url":     session.URL,
		"summary": checkout.Quote(input.CartItems, h.Config.Pricing()),
	})
}
