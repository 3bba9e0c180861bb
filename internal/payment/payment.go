// Package payment requests hosted checkout sessions from the payment provider.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// LineItem is one priced row of a checkout session. UnitAmount is in minor units (cents).
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// SessionRequest describes the session to create.
type SessionRequest struct {
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

// Session is the provider's answer: an id and the hosted page to send the buyer to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Gateway creates checkout sessions.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// StripeGateway implements Gateway with Stripe Checkout.
type StripeGateway struct {
	client session.Client
}

// NewStripeGateway returns a gateway authenticated with the given secret key.
func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is empty")
	}
	return &StripeGateway{
		client: session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
	}, nil
}

// CreateCheckoutSession creates a card payment session in "payment" mode.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	s, err := g.client.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("stripe %s (%s): %w", stripeErr.Type, stripeErr.Code, err)
		}
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}
