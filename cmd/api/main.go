package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/storefront/internal/auth"
	"github.com/01moynul/storefront/internal/config"
	"github.com/01moynul/storefront/internal/database"
	"github.com/01moynul/storefront/internal/handlers"
	"github.com/01moynul/storefront/internal/metrics"
	"github.com/01moynul/storefront/internal/oauth"
	"github.com/01moynul/storefront/internal/payment"
	"github.com/01moynul/storefront/internal/routes"
	"github.com/01moynul/storefront/internal/services"
	"github.com/01moynul/storefront/internal/upload"
	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	store := database.NewStore(db)

	// 2. --- Tokens & Image Storage ---
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	images, err := upload.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	// 3. --- Optional Integrations (Google, Stripe) ---
	var provider oauth.Provider
	if cfg.OAuthEnabled() {
		google, err := oauth.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		if err != nil {
			slog.Error("google login disabled", "error", err)
		} else {
			provider = google
		}
	} else {
		slog.Warn("google login disabled: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET or GOOGLE_CALLBACK_URL not set")
	}

	var gateway payment.Gateway
	if cfg.StripeSecretKey != "" {
		stripeGateway, err := payment.NewStripeGateway(cfg.StripeSecretKey)
		if err != nil {
			return err
		}
		gateway = stripeGateway
	} else {
		slog.Warn("checkout disabled: STRIPE_SECRET_KEY not set")
	}

	// 4. --- Services ---
	m := metrics.New()
	checkoutSvc := services.NewCheckoutService(gateway, services.CheckoutOptions{
		Currency:   cfg.Currency,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Pricing:    cfg.Pricing(),
	})
	checkoutSvc.OnSession(m.CheckoutSession)

	app := &handlers.Handlers{
		Auth: services.NewAuthService(store, tokens, services.AuthOptions{
			SignupRoles:          cfg.SignupRoles,
			StrictSignupRoles:    cfg.StrictSignupRoles,
			RequireVerifiedEmail: cfg.OAuthRequireVerifiedEmail,
		}),
		Catalog:  services.NewCatalogService(store, images),
		Checkout: checkoutSvc,
		OAuth:    provider,
		Config:   cfg,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(ctx, app, m)

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting storefront API server", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}
