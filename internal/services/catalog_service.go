package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/models"
	"github.com/01moynul/storefront/internal/upload"
	"github.com/google/uuid"
)

// Paging defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	ErrProductNotFound = apperr.NotFound("Product not found")
	ErrImageRequired   = apperr.Validation("image", "Please upload a product image")
	ErrInvalidPrice    = apperr.Validation("price", "Please provide a valid price")
	ErrAdminRequired   = apperr.Forbidden("Admin access required")
	ErrNotAuthorized   = apperr.New(apperr.KindInvalidToken, "Not authorized, no token")
)

// ProductInput is the data needed to create a product.
type ProductInput struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=500"`
	Price       float64 `json:"price" validate:"gte=0,lte=9999999999.99"`
}

// ProductPatch carries the fields of an update. Nil fields are left unchanged.
type ProductPatch struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0,lte=9999999999.99"`
}

// CatalogService manages products and their images.
type CatalogService struct {
	products models.ProductRepository
	images   upload.Store
	now      func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products models.ProductRepository, images upload.Store) *CatalogService {
	return &CatalogService{products: products, images: images, now: time.Now}
}

// ParsePrice parses a form price. Non-numeric, negative, non-finite and
// oversized values are rejected.
func ParsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !validPrice(v) {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= checkout.MaxPrice
}

// ParsePaging reads page and limit query values. Missing, non-numeric or
// non-positive values fall back to the defaults; limit is capped at MaxLimit.
func ParsePaging(pageRaw, limitRaw string) (page, limit int) {
	page, err := strconv.Atoi(pageRaw)
	if err != nil {
		page = DefaultPage
	}
	limit, err = strconv.Atoi(limitRaw)
	if err != nil {
		limit = DefaultLimit
	}
	return normalizePaging(page, limit)
}

func normalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Create validates the input, stores the image, then inserts the product.
// If the insert fails the stored image is removed again.
func (s *CatalogService) Create(ctx context.Context, actor *models.User, in ProductInput, image *upload.File) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	// 1. --- Validate before touching storage ---
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if !validPrice(in.Price) {
		return nil, ErrInvalidPrice
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrImageRequired
	}

	// 2. --- Store the image ---
	ref, err := s.images.Save(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	// 3. --- Insert the record ---
	now := s.now().UTC()
	product := &models.Product{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    ref,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		s.removeImage(ctx, ref, "rollback after failed insert")
		return nil, fmt.Errorf("create product: %w", err)
	}

	slog.Info("product created", "product_id", product.ID, "by", actor.ID)
	return product, nil
}

// List returns one page of products, newest first.
func (s *CatalogService) List(ctx context.Context, actor *models.User, page, limit int) (*models.ProductPage, error) {
	if actor == nil {
		return nil, ErrNotAuthorized
	}
	page, limit = normalizePaging(page, limit)

	total, err := s.products.CountProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	products, err := s.products.ListProducts(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &models.ProductPage{
		Products:      products,
		CurrentPage:   page,
		TotalPages:    (total + limit - 1) / limit,
		TotalProducts: total,
	}, nil
}

// Get returns a single product.
func (s *CatalogService) Get(ctx context.Context, actor *models.User, id string) (*models.Product, error) {
	if actor == nil {
		return nil, ErrNotAuthorized
	}
	return s.find(ctx, id)
}

// Update applies patch and, when given, swaps the image. A new image is stored
// before the update and removed if the update fails; the old one is removed
// only after the update succeeds.
func (s *CatalogService) Update(ctx context.Context, actor *models.User, id string, patch ProductPatch, image *upload.File) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	// 1. --- Validate and apply the patch ---
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	if patch.Price != nil && !validPrice(*patch.Price) {
		return nil, ErrInvalidPrice
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}

	// 2. --- Store the replacement image ---
	oldRef := product.ImageURL
	newRef := ""
	if image != nil {
		newRef, err = s.images.Save(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		product.ImageURL = newRef
	}

	// 3. --- Persist ---
	product.UpdatedAt = s.now().UTC()
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		if newRef != "" {
			s.removeImage(ctx, newRef, "rollback after failed update")
		}
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	if newRef != "" && oldRef != "" {
		s.removeImage(ctx, oldRef, "replaced image")
	}
	return product, nil
}

// Delete removes the product's image and then the product.
func (s *CatalogService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	product, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if product.ImageURL != "" {
		s.removeImage(ctx, product.ImageURL, "product deleted")
	}

	if err := s.products.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	slog.Info("product deleted", "product_id", id, "by", actor.ID)
	return nil
}

func (s *CatalogService) find(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.ProductByID(ctx, id)
	if errors.Is(err, models.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

// removeImage is best-effort: a failure is logged and swallowed.
func (s *CatalogService) removeImage(ctx context.Context, ref, reason string) {
	if err := s.images.Remove(ctx, ref); err != nil {
		slog.Error("failed to remove product image", "ref", ref, "reason", reason, "error", err)
	}
}

func requireAdmin(actor *models.User) error {
	if actor == nil {
		return ErrNotAuthorized
	}
	if !actor.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}
