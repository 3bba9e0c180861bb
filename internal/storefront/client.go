package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/models"
)

// Client talks to the storefront API. It attaches the session token to every
// request and logs the session out when the server rejects the token.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// NewClient returns a client for the API at baseURL. A nil httpClient uses a
// client with a 15 second timeout.
func NewClient(baseURL string, session *Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: session,
	}
}

// CheckoutResponse is the answer to POST /create-checkout-session.
type CheckoutResponse struct {
	ID      string           `json:"id"`
	URL     string           `json:"url"`
	Summary checkout.Summary `json:"summary"`
}

// NewProduct is the form of an admin product upload.
type NewProduct struct {
	Title       string
	Description string
	Price       float64
	ImageName   string
	Image       io.Reader
}

// Signup registers an account and stores the returned token.
func (c *Client) Signup(ctx context.Context, in models.SignupInput) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/signup", in, &res); err != nil {
		return nil, err
	}
	return &res, c.session.SetToken(res.Token)
}

// Login authenticates with email and password and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res models.AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	return &res, c.session.SetToken(res.Token)
}

// AcceptToken stores a token delivered by the Google success redirect after
// checking that the server accepts it.
func (c *Client) AcceptToken(ctx context.Context, token string) (*models.Profile, error) {
	var p models.Profile
	path := "/api/auth/user-by-token?token=" + url.QueryEscape(token)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, c.session.SetToken(token)
}

// Profile returns the current user.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Products returns one page of the catalog.
func (c *Client) Products(ctx context.Context, page, limit int) (*models.ProductPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res models.ProductPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Product returns a single product.
func (c *Client) Product(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := c.doJSON(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct uploads a new product (admin only).
func (c *Client) CreateProduct(ctx context.Context, in NewProduct) (*models.Product, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", in.Title)
	_ = mw.WriteField("description", in.Description)
	_ = mw.WriteField("price", strconv.FormatFloat(in.Price, 'f', 2, 64))
	if in.Image != nil {
		fw, err := mw.CreateFormFile("image", in.ImageName)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(fw, in.Image); err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var res struct {
		Product models.Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/products", mw.FormDataContentType(), &buf, &res); err != nil {
		return nil, err
	}
	return &res.Product, nil
}

// DeleteProduct removes a product (admin only).
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
}

// CreateCheckoutSession submits a cart snapshot and returns the hosted checkout page.
func (c *Client) CreateCheckoutSession(ctx context.Context, lines []models.CartLine) (*CheckoutResponse, error) {
	body := map[string]any{"cartItems": lines}
	var res CheckoutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/create-checkout-session", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Upstream("Could not reach the storefront API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp)
		if resp.StatusCode == http.StatusUnauthorized && c.session.Authenticated() {
			// Expired or revoked: back to anonymous.
			_ = c.session.Clear()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream("Unexpected response from the storefront API", err)
	}
	return nil
}

// decodeError turns an error response into an *apperr.Error of the matching kind.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	cause := fmt.Errorf("%s: HTTP %d", resp.Request.URL.Path, resp.StatusCode)
	return &apperr.Error{
		Kind:    kindForStatus(resp.StatusCode),
		Message: body.Error,
		Field:   body.Field,
		Err:     cause,
	}
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindValidation
	case http.StatusUnauthorized:
		return apperr.KindInvalidToken
	case http.StatusForbidden:
		return apperr.KindForbidden
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusInternalServerError:
		return apperr.KindInternal
	default:
		return apperr.KindUpstreamFailure
	}
}
