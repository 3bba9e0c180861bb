package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/01moynul/storefront/internal/auth"
	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/config"
	"github.com/01moynul/storefront/internal/database/memory"
	"github.com/01moynul/storefront/internal/handlers"
	"github.com/01moynul/storefront/internal/metrics"
	"github.com/01moynul/storefront/internal/models"
	"github.com/01moynul/storefront/internal/oauth"
	"github.com/01moynul/storefront/internal/payment"
	"github.com/01moynul/storefront/internal/services"
	"github.com/01moynul/storefront/internal/upload"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	requests []payment.SessionRequest
	err      error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}, nil
}

type fakeProvider struct {
	profile *oauth.ExternalProfile
	err     error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*oauth.ExternalProfile, error) {
	return f.profile, f.err
}

type testServer struct {
	router  *gin.Engine
	db      *memory.DB
	images  *upload.MemoryStore
	gateway *fakeGateway
	oauth   *fakeProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppEnv:                    "test",
		ClientURL:                 "http://localhost:3000",
		CORSOrigins:               []string{"http://localhost:3000"},
		MaxUploadBytes:            1 << 20,
		OAuthRequireVerifiedEmail: true,
		SignupRoles:               []string{models.RoleUser, models.RoleAdmin},
		StrictSignupRoles:         true,
		CheckoutSuccessURL:        "http://localhost:3000/success",
		CheckoutCancelURL:         "http://localhost:3000/cancel",
		Currency:                  "usd",
		ShippingFee:               5.99,
		FreeShippingThreshold:     50,
		RateLimitRPS:              1000,
		RateLimitBurst:            1000,
	}

	tokens, err := auth.NewTokenService("test-secret", auth.DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}

	ts := &testServer{
		db:      memory.New(),
		images:  upload.NewMemoryStore(),
		gateway: &fakeGateway{},
		oauth:   &fakeProvider{},
	}

	h := &handlers.Handlers{
		Auth: services.NewAuthService(ts.db, tokens, services.AuthOptions{
			SignupRoles:          cfg.SignupRoles,
			StrictSignupRoles:    cfg.StrictSignupRoles,
			RequireVerifiedEmail: cfg.OAuthRequireVerifiedEmail,
		}),
		Catalog: services.NewCatalogService(ts.db, ts.images),
		Checkout: services.NewCheckoutService(ts.gateway, services.CheckoutOptions{
			Currency:   cfg.Currency,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
			Pricing:    cfg.Pricing(),
		}),
		OAuth:  ts.oauth,
		Config: cfg,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ts.router = SetupRouter(ctx, h, metrics.New())
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postJSON(path string, body any, token string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(req)
}

func (ts *testServer) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(req)
}

func (ts *testServer) signup(t *testing.T, username, role string) models.AuthResult {
	t.Helper()
	w := ts.postJSON("/api/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
		"role":     role,
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
	var res models.AuthResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func multipartBody(t *testing.T, method, path, token string, fields map[string]string, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("fake image bytes"))
	}
	_ = mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.signup(t, "alice", "")
	if alice.Role != models.RoleUser || alice.Token == "" {
		t.Fatalf("unexpected signup result %+v", alice)
	}

	// Duplicate email
	w := ts.postJSON("/api/auth/signup", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "secret123",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup: expected 400, got %d", w.Code)
	}

	// Login
	w = ts.postJSON("/api/auth/login", map[string]string{"email": "alice@example.com", "password": "secret123"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}

	// Wrong password and unknown email look the same
	wrong := ts.postJSON("/api/auth/login", map[string]string{"email": "alice@example.com", "password": "nope123"}, "")
	unknown := ts.postJSON("/api/auth/login", map[string]string{"email": "bob@example.com", "password": "nope123"}, "")
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for both, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}

	// Profile
	w = ts.get("/api/auth/profile", alice.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", w.Code)
	}
	profile := decode[models.Profile](t, w)
	if profile.ID != alice.ID || profile.Username != "alice" {
		t.Errorf("unexpected profile %+v", profile)
	}

	if w := ts.get("/api/auth/profile", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("profile without token: expected 401, got %d", w.Code)
	}

	// User by token
	if w := ts.get("/api/auth/user-by-token", ""); w.Code != http.StatusBadRequest {
		t.Errorf("user-by-token without token: expected 400, got %d", w.Code)
	}
	if w := ts.get("/api/auth/user-by-token?token=garbage", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("user-by-token with garbage: expected 401, got %d", w.Code)
	}
	if w := ts.get("/api/auth/user-by-token?token="+alice.Token, ""); w.Code != http.StatusOK {
		t.Errorf("user-by-token: expected 200, got %d", w.Code)
	}
}

func TestProductFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signup(t, "root", "admin")
	user := ts.signup(t, "alice", "")

	// Non-admin cannot create
	req := multipartBody(t, http.MethodPost, "/api/products", user.Token,
		map[string]string{"title": "Lamp", "price": "19.99"}, "lamp.png")
	if w := ts.do(req); w.Code != http.StatusForbidden {
		t.Errorf("user create: expected 403, got %d", w.Code)
	}

	// Missing image is a validation error and writes nothing
	req = multipartBody(t, http.MethodPost, "/api/products", admin.Token,
		map[string]string{"title": "Lamp", "price": "19.99"}, "")
	if w := ts.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("create without image: expected 400, got %d", w.Code)
	}
	if n, _ := ts.db.CountProducts(context.Background()); n != 0 {
		t.Errorf("expected no products, got %d", n)
	}

	// Bad price
	req = multipartBody(t, http.MethodPost, "/api/products", admin.Token,
		map[string]string{"title": "Lamp", "price": "free"}, "lamp.png")
	if w := ts.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("create with bad price: expected 400, got %d", w.Code)
	}

	// Create
	req = multipartBody(t, http.MethodPost, "/api/products", admin.Token,
		map[string]string{"title": "Lamp", "description": "Desk lamp", "price": "19.99"}, "lamp.png")
	w := ts.do(req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[struct {
		Product models.Product `json:"product"`
	}](t, w).Product
	if !strings.HasPrefix(created.ImageURL, "uploads/") || !ts.images.Has(created.ImageURL) {
		t.Errorf("unexpected image reference %q", created.ImageURL)
	}

	// Any authenticated user can read
	if w := ts.get("/api/products/"+created.ID, user.Token); w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}
	if w := ts.get("/api/products", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("list without token: expected 401, got %d", w.Code)
	}
	w = ts.get("/api/products?page=abc&limit=-1", user.Token)
	page := decode[models.ProductPage](t, w)
	if page.CurrentPage != 1 || page.TotalProducts != 1 || len(page.Products) != 1 {
		t.Errorf("unexpected page %+v", page)
	}

	// Update price only
	req = multipartBody(t, http.MethodPut, "/api/products/"+created.ID, admin.Token,
		map[string]string{"price": "25"}, "")
	w = ts.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[struct {
		Product models.Product `json:"product"`
	}](t, w).Product
	if updated.Price != 25 || updated.Title != "Lamp" || updated.ImageURL != created.ImageURL {
		t.Errorf("unexpected update %+v", updated)
	}

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/api/products/"+created.ID, nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	if w := ts.do(req); w.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", w.Code)
	}
	if ts.images.Has(created.ImageURL) {
		t.Error("expected image to be removed with the product")
	}
	if w := ts.get("/api/products/"+created.ID, user.Token); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", w.Code)
	}
}

func TestRoleChangeAppliesToExistingToken(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.signup(t, "root", "admin")
	user := ts.signup(t, "alice", "")

	req := multipartBody(t, http.MethodPost, "/api/products", user.Token,
		map[string]string{"title": "Lamp", "price": "1"}, "lamp.png")
	if w := ts.do(req); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", w.Code)
	}

	b, _ := json.Marshal(map[string]string{"role": "admin"})
	req = httptest.NewRequest(http.MethodPatch, "/api/admin/users/"+user.ID+"/role", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	if w := ts.do(req); w.Code != http.StatusOK {
		t.Fatalf("role change: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = multipartBody(t, http.MethodPost, "/api/products", user.Token,
		map[string]string{"title": "Lamp", "price": "1"}, "lamp.png")
	if w := ts.do(req); w.Code != http.StatusCreated {
		t.Errorf("expected 201 with the same token after promotion, got %d", w.Code)
	}
}

func TestCheckoutSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON("/create-checkout-session", map[string]any{
		"cartItems": []map[string]any{
			{"_id": "p1", "title": "Lamp", "price": 10, "quantity": 2},
		},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode[struct {
		ID      string           `json:"id"`
		URL     string           `json:"url"`
		Summary checkout.Summary `json:"summary"`
	}](t, w)
	if body.ID != "cs_test_1" || body.URL == "" {
		t.Errorf("unexpected body %+v", body)
	}
	if body.Summary.Total != 25.99 {
		t.Errorf("expected total 25.99, got %v", body.Summary.Total)
	}
	if len(ts.gateway.requests) != 1 || len(ts.gateway.requests[0].LineItems) != 2 {
		t.Errorf("expected one session with item + shipping, got %+v", ts.gateway.requests)
	}

	if w := ts.postJSON("/create-checkout-session", map[string]any{"cartItems": []any{}}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty cart: expected 400, got %d", w.Code)
	}

	ts.gateway.err = errors.New("stripe down")
	w = ts.postJSON("/create-checkout-session", map[string]any{
		"cartItems": []map[string]any{{"title": "Lamp", "price": 10, "quantity": 1}},
	}, "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("gateway failure: expected 502, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "stripe down") {
		t.Errorf("gateway detail leaked: %s", w.Body.String())
	}
}

func TestGoogleOAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.oauth.profile = &oauth.ExternalProfile{
		ExternalID:    "google-1",
		Email:         "jane@example.com",
		EmailVerified: true,
		DisplayName:   "Jane Doe",
	}

	// Start: state cookie + redirect to the provider
	w := ts.get("/api/auth/google", "")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "google_oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("expected state cookie")
	}

	// Callback with a mismatched state goes to the failure page
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=wrong&code=abc", nil)
	req.AddCookie(stateCookie)
	w = ts.do(req)
	if loc := w.Header().Get("Location"); loc != "http://localhost:3000/auth/google/failure" {
		t.Errorf("state mismatch: unexpected redirect %q", loc)
	}

	// Valid callback redirects with a token
	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state="+url.QueryEscape(stateCookie.Value)+"&code=abc", nil)
	req.AddCookie(stateCookie)
	w = ts.do(req)
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || loc.Path != "/auth/google/success" {
		t.Fatalf("unexpected redirect %q", w.Header().Get("Location"))
	}
	token := loc.Query().Get("token")
	if token == "" {
		t.Fatal("expected token in redirect")
	}

	profile := decode[models.Profile](t, ts.get("/api/auth/user-by-token?token="+url.QueryEscape(token), ""))
	if profile.Email != "jane@example.com" || profile.Role != models.RoleUser {
		t.Errorf("unexpected profile %+v", profile)
	}

	// Exchange failure also lands on the failure page
	ts.oauth.err = errors.New("bad code")
	req = httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state="+url.QueryEscape(stateCookie.Value)+"&code=abc", nil)
	req.AddCookie(stateCookie)
	w = ts.do(req)
	if loc := w.Header().Get("Location"); loc != "http://localhost:3000/auth/google/failure" {
		t.Errorf("exchange failure: unexpected redirect %q", loc)
	}

	if w := ts.get("/api/auth/google/failure", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("failure endpoint: expected 401, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.get("/health", ""); w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
	w := ts.get("/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "storefront_http_requests_total") {
		t.Errorf("metrics: unexpected response %d", w.Code)
	}
}
