// Package config loads process configuration from the environment (and an optional .env file).
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/storefront/internal/checkout"
	"github.com/joho/godotenv"
)

// Config holds every setting the API server needs.
type Config struct {
	Port   string
	AppEnv string

	DBDriver string
	DBDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	UploadDir      string
	MaxUploadBytes int64

	ClientURL   string
	CORSOrigins []string

	GoogleClientID            string
	GoogleClientSecret        string
	GoogleCallbackURL         string
	OAuthRequireVerifiedEmail bool

	SignupRoles       []string
	StrictSignupRoles bool

	StripeSecretKey       string
	CheckoutSuccessURL    string
	CheckoutCancelURL     string
	Currency              string
	ShippingFee           float64
	FreeShippingThreshold float64

	RateLimitRPS   float64
	RateLimitBurst int
}

// ErrMissingJWTSecret is returned when JWT_SECRET is not set.
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is not set")

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file, relying on system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	clientURL := strings.TrimRight(env("CLIENT_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		Port:   env("PORT", "8080"),
		AppEnv: env("APP_ENV", "development"),

		DBDriver: env("DB_DRIVER", "mysql"),
		DBDSN:    os.Getenv("DB_DSN"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  envDuration("TOKEN_TTL", 30*24*time.Hour),

		UploadDir:      env("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 5)) << 20,

		ClientURL:   clientURL,
		CORSOrigins: envList("CORS_ORIGINS", []string{clientURL}),

		GoogleClientID:            os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:        os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:         os.Getenv("GOOGLE_CALLBACK_URL"),
		OAuthRequireVerifiedEmail: envBool("OAUTH_REQUIRE_VERIFIED_EMAIL", true),

		SignupRoles:       envList("SIGNUP_ROLES", []string{"user", "admin"}),
		StrictSignupRoles: envBool("STRICT_SIGNUP_ROLES", true),

		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		CheckoutSuccessURL:    env("CHECKOUT_SUCCESS_URL", clientURL+"/success"),
		CheckoutCancelURL:     env("CHECKOUT_CANCEL_URL", clientURL+"/cancel"),
		Currency:              strings.ToLower(env("CURRENCY", "usd")),
		ShippingFee:           envFloat("SHIPPING_FEE", 5.99),
		FreeShippingThreshold: envFloat("FREE_SHIPPING_THRESHOLD", 50),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 10),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.DBDSN == "" && cfg.DBDriver == "sqlite3" {
		cfg.DBDSN = "storefront.db"
	}
	return cfg, nil
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// OAuthEnabled reports whether every Google OAuth setting is present.
func (c *Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleCallbackURL != ""
}

// Pricing returns the shipping rule used for quotes and checkout sessions.
func (c *Config) Pricing() checkout.Pricing {
	return checkout.Pricing{ShippingFee: c.ShippingFee, FreeShippingThreshold: c.FreeShippingThreshold}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
