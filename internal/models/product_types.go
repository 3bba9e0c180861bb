package models

import (
	"context"
	"errors"
	"time"
)

// Product is the model for the 'products' table.
type Product struct {
	ID          string    `json:"_id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ErrProductNotFound is returned by a ProductRepository when no row matches.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository is the catalog persistence port.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *Product) error
	ProductByID(ctx context.Context, id string) (*Product, error)
	// ListProducts returns products ordered newest-first.
	ListProducts(ctx context.Context, offset, limit int) ([]*Product, error)
	CountProducts(ctx context.Context) (int, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
}
