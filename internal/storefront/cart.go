package storefront

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/models"
)

// ProductSnapshot is what the cart copies from a product when it is added.
// Later catalog changes do not reach lines already in the cart.
type ProductSnapshot struct {
	ID       string
	Title    string
	Price    float64
	ImageURL string
}

// SnapshotOf copies the fields the cart keeps from a catalog product.
func SnapshotOf(p *models.Product) ProductSnapshot {
	return ProductSnapshot{ID: p.ID, Title: p.Title, Price: p.Price, ImageURL: p.ImageURL}
}

// Cart is the client-side shopping cart. Every mutation is written through to
// storage under the "cart" key. A Cart is not safe for concurrent use.
type Cart struct {
	store   Storage
	pricing checkout.Pricing
	lines   []models.CartLine
}

// LoadCart reads the persisted cart. Missing or malformed data, or any line
// with a non-positive quantity, gives an empty cart.
func LoadCart(store Storage, pricing checkout.Pricing) (*Cart, error) {
	c := &Cart{store: store, pricing: pricing}

	raw, ok, err := store.Get(cartKey)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return c, nil
	}

	var lines []models.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		slog.Warn("discarding unreadable cart", "error", err)
		return c, nil
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			slog.Warn("discarding cart with invalid quantity", "productId", l.ProductID, "quantity", l.Quantity)
			return c, nil
		}
	}
	c.lines = lines
	return c, nil
}

// Add puts one unit of p in the cart, incrementing an existing line.
func (c *Cart) Add(p ProductSnapshot) error {
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity++
		return c.save()
	}
	c.lines = append(c.lines, models.CartLine{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  1,
	})
	return c.save()
}

// Remove drops the line for productID. Unknown ids are a no-op.
func (c *Cart) Remove(productID string) error {
	i := c.index(productID)
	if i < 0 {
		return nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return c.save()
}

// SetQuantity sets the quantity of an existing line; qty <= 0 removes it.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty <= 0 {
		return c.Remove(productID)
	}
	i := c.index(productID)
	if i < 0 {
		return nil
	}
	c.lines[i].Quantity = qty
	return c.save()
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.lines = nil
	return c.save()
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []models.CartLine {
	return append([]models.CartLine(nil), c.lines...)
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Quote prices the cart with the snapshot prices.
func (c *Cart) Quote() checkout.Summary {
	return checkout.Quote(c.lines, c.pricing)
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) save() error {
	lines := c.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if err := c.store.Set(cartKey, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
