// Package checkout prices a cart: subtotal, flat shipping below a threshold, total.
// Amounts are summed in cents so the quote matches what the payment gateway charges.
package checkout

import (
	"math"

	"github.com/01moynul/storefront/internal/models"
)

// Limits on a single cart line. MaxPrice is the largest value the products.price
// column (DECIMAL(12,2)) holds; together they keep every cent amount well inside int64.
const (
	MaxPrice     = 9_999_999_999.99
	MaxQuantity  = 1000
	MaxCartLines = 100
)

// Pricing holds the shipping rule.
type Pricing struct {
	ShippingFee           float64
	FreeShippingThreshold float64
}

// DefaultPricing charges 5.99 shipping below 50.00.
var DefaultPricing = Pricing{ShippingFee: 5.99, FreeShippingThreshold: 50}

// Summary is the priced cart.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// Quote prices lines using the snapshot price on each line.
// Shipping is free when the subtotal is at or above the threshold.
func Quote(lines []models.CartLine, p Pricing) Summary {
	var subtotal int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal += ToCents(l.Price) * int64(l.Quantity)
	}

	var shipping int64
	if subtotal > 0 && subtotal < ToCents(p.FreeShippingThreshold) {
		shipping = ToCents(p.ShippingFee)
	}

	return Summary{
		Subtotal: FromCents(subtotal),
		Shipping: FromCents(shipping),
		Total:    FromCents(subtotal + shipping),
	}
}

// ToCents converts a decimal amount to integer minor units.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts minor units back to a decimal amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
