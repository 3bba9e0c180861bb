package handlers

import (
	"net/http"

	"github.com/01moynul/storefront/internal/middleware"
	"github.com/01moynul/storefront/internal/services"
	"github.com/gin-gonic/gin"
)

// CreateProduct handles POST /api/products (admin, multipart).
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Read the image ---
	image, closeImage, err := h.formImage(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer closeImage()

	// 2. --- Read the form fields ---
	price, err := services.ParsePrice(c.PostForm("price"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	input := services.ProductInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Price:       price,
	}

	// 3. --- Create (validates, stores the image, inserts) ---
	product, err := h.Catalog.Create(c.Request.Context(), middleware.CurrentUser(c), input, image)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// ListProducts handles GET /api/products?page=&limit=
func (h *Handlers) ListProducts(c *gin.Context) {
	page, limit := services.ParsePaging(c.Query("page"), c.Query("limit"))

	result, err := h.Catalog.List(c.Request.Context(), middleware.CurrentUser(c), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProduct handles GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.Catalog.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct handles PUT /api/products/:id (admin, multipart).
// Only the fields present in the form are changed.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	image, closeImage, err := h.formImage(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer closeImage()

	var patch services.ProductPatch
	if title, ok := c.GetPostForm("title"); ok && title != "" {
		patch.Title = &title
	}
	if description, ok := c.GetPostForm("description"); ok && description != "" {
		patch.Description = &description
	}
	if raw, ok := c.GetPostForm("price"); ok {
		price, err := services.ParsePrice(raw)
		if err != nil {
			h.respondError(c, err)
			return
		}
		patch.Price = &price
	}

	product, err := h.Catalog.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), patch, image)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct handles DELETE /api/products/:id (admin).
func (h *Handlers) DeleteProduct(c *gin.Context) {
	if err := h.Catalog.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product removed successfully"})
}
