package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/01moynul/storefront/internal/models"
	"github.com/01moynul/storefront/internal/storefront"
	"github.com/spf13/cobra"
)

//
// --- Session ---
//

func (c *cli) signupCmd() *cobra.Command {
	var in models.SignupInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.API.Signup(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s (%s)\n", res.Username, res.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "username")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (6 characters or more)")
	cmd.Flags().StringVar(&in.Role, "role", "", "requested role (user or admin)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.API.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.Username, res.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <token>",
		Short: "Log in with the token from the Google sign-in success page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.API.AcceptToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", p.Username, p.Role)
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Logout()
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			p, err := c.app.API.Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s id=%s\n", p.Username, p.Email, p.Role, p.ID)
			return nil
		},
	}
}

//
// --- Catalog ---
//

func (c *cli) productsCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.API.Products(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPRICE")
			for _, p := range res.Products {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Title, money(p.Price))
			}
			_ = w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d products)\n", res.CurrentPage, res.TotalPages, res.TotalProducts)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "products per page")

	cmd.AddCommand(c.productShowCmd(), c.productAddCmd(), c.productDeleteCmd())
	return cmd
}

func (c *cli) productShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.API.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n%s\nimage: %s\n", p.Title, money(p.Price), p.Description, p.ImageURL)
			return nil
		},
	}
}

func (c *cli) productAddCmd() *cobra.Command {
	var in storefront.NewProduct
	var imagePath string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(imagePath)
			if err != nil {
				return err
			}
			defer f.Close()
			in.Image = f
			in.ImageName = filepath.Base(imagePath)

			p, err := c.app.API.CreateProduct(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", p.Title, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "product title")
	cmd.Flags().StringVar(&in.Description, "description", "", "product description")
	cmd.Flags().Float64Var(&in.Price, "price", 0, "price")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to the product image")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (c *cli) productDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.API.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product removed")
			return nil
		},
	}
}

//
// --- Cart ---
//

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.printCart(cmd)
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.app.API.Product(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := c.app.Cart.Add(storefront.SnapshotOf(p)); err != nil {
					return err
				}
				c.printCart(cmd)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Cart.Remove(args[0]); err != nil {
					return err
				}
				c.printCart(cmd)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <product-id> <quantity>",
			Short: "Set the quantity of a product (0 removes it)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				qty, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("quantity must be a number: %w", err)
				}
				if err := c.app.Cart.SetQuantity(args[0], qty); err != nil {
					return err
				}
				c.printCart(cmd)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.Cart.Clear()
			},
		},
	)
	return cmd
}

func (c *cli) printCart(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	lines := c.app.Cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tPRICE\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.ProductID, l.Title, l.Quantity, money(l.Price), money(l.LineTotal()))
	}
	_ = w.Flush()

	q := c.app.Cart.Quote()
	shipping := money(q.Shipping)
	if q.Shipping == 0 {
		shipping = "Free"
	}
	fmt.Fprintf(out, "\nItems: %d\nSubtotal: %s\nShipping: %s\nTotal: %s\n", c.app.Cart.Count(), money(q.Subtotal), shipping, money(q.Total))
}

//
// --- Checkout ---
//

func (c *cli) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Start a hosted checkout for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := c.app.Checkout.Start(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Complete your payment at:\n%s\n\nThen run `storefront return success` (or `cancel`).\n", url)
			return nil
		},
	}
}

func (c *cli) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "return <success|cancel>",
		Short:     "Record how the payment page finished",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{storefront.OutcomeSuccess, storefront.OutcomeCancel},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Checkout.HandleReturn(args[0]); err != nil {
				return err
			}
			if args[0] == storefront.OutcomeSuccess {
				fmt.Fprintln(cmd.OutOrStdout(), "Payment successful. Your cart has been cleared.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Payment cancelled. Your cart has been kept.")
			}
			return nil
		},
	}
}
