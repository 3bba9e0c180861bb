package storefront

import (
	"context"
	"errors"
	"log/slog"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/models"
)

// Outcomes the payment page returns to.
const (
	OutcomeSuccess = "success"
	OutcomeCancel  = "cancel"
)

var (
	ErrEmptyCart      = apperr.Validation("cartItems", "Your cart is empty")
	ErrCheckoutFailed = apperr.Upstream("Could not start checkout", nil)
	ErrUnknownOutcome = apperr.Validation("outcome", "Outcome must be success or cancel")
	errNoCheckoutURL  = errors.New("checkout session has no url")
)

// SessionCreator is the part of the API client checkout needs.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, lines []models.CartLine) (*CheckoutResponse, error)
}

// Checkout hands the cart to the hosted payment page and handles the return.
type Checkout struct {
	cart *Cart
	api  SessionCreator
}

func NewCheckout(cart *Cart, api SessionCreator) *Checkout {
	return &Checkout{cart: cart, api: api}
}

// Start submits the cart and returns the URL of the hosted checkout page.
// The cart is left untouched whether or not this succeeds.
func (c *Checkout) Start(ctx context.Context) (string, error) {
	lines := c.cart.Lines()
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	res, err := c.api.CreateCheckoutSession(ctx, lines)
	if err != nil {
		slog.Error("checkout session failed", "error", err)
		return "", ErrCheckoutFailed.Wrap(err)
	}
	if res.URL == "" {
		return "", ErrCheckoutFailed.Wrap(errNoCheckoutURL)
	}
	return res.URL, nil
}

// HandleReturn applies the outcome the payment page redirected back with.
// Success clears the cart without confirming payment; cancel keeps it.
func (c *Checkout) HandleReturn(outcome string) error {
	switch outcome {
	case OutcomeSuccess:
		return c.cart.Clear()
	case OutcomeCancel:
		return nil
	default:
		return ErrUnknownOutcome
	}
}
