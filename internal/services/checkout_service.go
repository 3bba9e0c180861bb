package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/models"
	"github.com/01moynul/storefront/internal/payment"
)

const shippingLineName = "Shipping"

var (
	ErrEmptyCart          = apperr.Validation("cartItems", "Cart is empty")
	ErrPaymentUnavailable = apperr.Upstream("Payment provider is unavailable", nil)
)

// CheckoutOptions configures the payment session.
type CheckoutOptions struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	Pricing    checkout.Pricing
}

// CheckoutService turns a submitted cart snapshot into a hosted payment session.
type CheckoutService struct {
	gateway payment.Gateway
	opts    CheckoutOptions
	// onSession is called after every attempt; used for metrics.
	onSession func(ok bool)
}

// NewCheckoutService creates a checkout service. A nil gateway makes every
// CreateSession call fail with ErrPaymentUnavailable.
func NewCheckoutService(gateway payment.Gateway, opts CheckoutOptions) *CheckoutService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &CheckoutService{gateway: gateway, opts: opts, onSession: func(bool) {}}
}

// OnSession registers a hook called with the outcome of each session request.
func (s *CheckoutService) OnSession(fn func(ok bool)) {
	if fn != nil {
		s.onSession = fn
	}
}

// CreateSession prices the submitted lines as given (the catalog is not re-read)
// and asks the payment gateway for a session.
func (s *CheckoutService) CreateSession(ctx context.Context, lines []models.CartLine) (*payment.Session, error) {
	// 1. --- Validate the snapshot ---
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if len(lines) > checkout.MaxCartLines {
		return nil, apperr.Validation("cartItems", fmt.Sprintf("A cart holds at most %d items", checkout.MaxCartLines))
	}
	for _, l := range lines {
		if strings.TrimSpace(l.Title) == "" {
			return nil, apperr.Validation("title", "Every cart item needs a title")
		}
		if l.Quantity < 1 {
			return nil, apperr.Validation("quantity", "Quantity must be at least 1")
		}
		if l.Quantity > checkout.MaxQuantity {
			return nil, apperr.Validation("quantity", fmt.Sprintf("Quantity must be at most %d", checkout.MaxQuantity))
		}
		if !validPrice(l.Price) {
			return nil, ErrInvalidPrice
		}
	}

	// 2. --- Build line items ---
	summary := checkout.Quote(lines, s.opts.Pricing)
	req := payment.SessionRequest{
		Currency:   s.opts.Currency,
		SuccessURL: s.opts.SuccessURL,
		CancelURL:  s.opts.CancelURL,
	}
	for _, l := range lines {
		req.LineItems = append(req.LineItems, payment.LineItem{
			Name:       l.Title,
			UnitAmount: checkout.ToCents(l.Price),
			Quantity:   int64(l.Quantity),
		})
	}
	if summary.Shipping > 0 {
		req.LineItems = append(req.LineItems, payment.LineItem{
			Name:       shippingLineName,
			UnitAmount: checkout.ToCents(summary.Shipping),
			Quantity:   1,
		})
	}

	// 3. --- Request the session ---
	if s.gateway == nil {
		s.onSession(false)
		return nil, ErrPaymentUnavailable
	}
	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.onSession(false)
		slog.Error("checkout session failed", "error", err, "items", len(lines))
		return nil, ErrPaymentUnavailable.Wrap(err)
	}

	s.onSession(true)
	slog.Info("checkout session created", "session_id", sess.ID, "total", summary.Total)
	return sess, nil
}
