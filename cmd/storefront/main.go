// Command storefront is a terminal client for the storefront API: it keeps the
// login token and the shopping cart on disk between runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/01moynul/storefront/internal/checkout"
	"github.com/01moynul/storefront/internal/storefront"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cli struct {
	apiURL    string
	statePath string
	app       *storefront.App
}

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Browse the catalog, manage your cart and check out",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := storefront.Open(storefront.Options{
				APIURL:  c.apiURL,
				Storage: storefront.NewFileStorage(c.statePath),
				Pricing: checkout.DefaultPricing,
			})
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.apiURL, "api", envOr("STOREFRONT_API_URL", "http://localhost:8080"), "storefront API base URL")
	root.PersistentFlags().StringVar(&c.statePath, "state", envOr("STOREFRONT_STATE", defaultStatePath()), "file holding the session and cart")

	root.AddCommand(
		c.signupCmd(),
		c.loginCmd(),
		c.tokenCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.productsCmd(),
		c.cartCmd(),
		c.checkoutCmd(),
		c.returnCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront.json"
	}
	return filepath.Join(dir, "storefront", "state.json")
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
