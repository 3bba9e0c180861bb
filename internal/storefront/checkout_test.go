package storefront

import (
	"context"
	"errors"
	"testing"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/models"
)

type mockSessionCreator struct {
	CreateFunc func(ctx context.Context, lines []models.CartLine) (*CheckoutResponse, error)
	calls      int
}

func (m *mockSessionCreator) CreateCheckoutSession(ctx context.Context, lines []models.CartLine) (*CheckoutResponse, error) {
	m.calls++
	return m.CreateFunc(ctx, lines)
}

func TestCheckout_Start(t *testing.T) {
	cart := newCart(t, NewMemoryStorage())
	api := &mockSessionCreator{
		CreateFunc: func(ctx context.Context, lines []models.CartLine) (*CheckoutResponse, error) {
			if len(lines) != 1 || lines[0].Quantity != 2 {
				t.Errorf("unexpected lines %+v", lines)
			}
			return &CheckoutResponse{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil
		},
	}
	co := NewCheckout(cart, api)

	if _, err := co.Start(context.Background()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if api.calls != 0 {
		t.Fatal("empty cart must not reach the API")
	}

	_ = cart.Add(lamp)
	_ = cart.Add(lamp)
	url, err := co.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if url != "https://pay.example.com/cs_1" {
		t.Errorf("unexpected url %q", url)
	}
	if cart.Count() != 2 {
		t.Error("starting checkout must not change the cart")
	}
}

func TestCheckout_StartFailureKeepsCart(t *testing.T) {
	cart := newCart(t, NewMemoryStorage())
	_ = cart.Add(lamp)

	co := NewCheckout(cart, &mockSessionCreator{
		CreateFunc: func(ctx context.Context, lines []models.CartLine) (*CheckoutResponse, error) {
			return nil, errors.New("connection refused")
		},
	})

	_, err := co.Start(context.Background())
	if !apperr.IsKind(err, apperr.KindUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	if !errors.Is(err, ErrCheckoutFailed) {
		t.Errorf("expected ErrCheckoutFailed, got %v", err)
	}
	if cart.Count() != 1 {
		t.Error("cart must be untouched on failure")
	}
}

func TestCheckout_HandleReturn(t *testing.T) {
	store := NewMemoryStorage()
	cart := newCart(t, store)
	co := NewCheckout(cart, &mockSessionCreator{})

	_ = cart.Add(lamp)
	_ = cart.Add(chair)

	if err := co.HandleReturn(OutcomeCancel); err != nil {
		t.Fatal(err)
	}
	if cart.Count() != 2 {
		t.Errorf("cancel must keep the cart, got %d", cart.Count())
	}

	if err := co.HandleReturn("maybe"); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("expected ErrUnknownOutcome, got %v", err)
	}

	if err := co.HandleReturn(OutcomeSuccess); err != nil {
		t.Fatal(err)
	}
	if cart.Count() != 0 {
		t.Errorf("success must clear the cart, got %d", cart.Count())
	}
	if reloaded := newCart(t, store); reloaded.Count() != 0 {
		t.Error("cleared cart must be persisted")
	}
}
