package storefront

import (
	"net/http"

	"github.com/01moynul/storefront/internal/checkout"
)

// Options configures a storefront App.
type Options struct {
	// APIURL is the base URL of the storefront API.
	APIURL string
	// Storage persists the session and cart. Defaults to MemoryStorage.
	Storage Storage
	// Pricing must match the server's shipping rule for quotes to agree.
	Pricing    checkout.Pricing
	HTTPClient *http.Client
}

// App bundles the client-side pieces around one storage.
type App struct {
	Session  *Session
	Cart     *Cart
	API      *Client
	Checkout *Checkout
}

// Open loads the persisted session and cart and wires the API client.
func Open(opts Options) (*App, error) {
	store := opts.Storage
	if store == nil {
		store = NewMemoryStorage()
	}
	if opts.Pricing == (checkout.Pricing{}) {
		opts.Pricing = checkout.DefaultPricing
	}

	session, err := LoadSession(store)
	if err != nil {
		return nil, err
	}
	cart, err := LoadCart(store, opts.Pricing)
	if err != nil {
		return nil, err
	}
	api := NewClient(opts.APIURL, session, opts.HTTPClient)

	return &App{
		Session:  session,
		Cart:     cart,
		API:      api,
		Checkout: NewCheckout(cart, api),
	}, nil
}

// Logout discards the session token. The cart is kept.
func (a *App) Logout() error {
	return a.Session.Clear()
}
