package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Jenaru0/dela-storefront/internal/app"
	types "github.com/Jenaru0/dela-storefront/internal/domain"
)

type cli struct {
	app *app.App
	tab *app.Tab
	out io.Writer
}

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"register": cmdRegister,
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"whoami":   cmdWhoami,
	"products": cmdProducts,
	"cart":     cmdCart,
	"add":      cmdAdd,
	"inc":      lineCommand(func(ctx context.Context, c *cli, id string) types.Result { return c.tab.Cart.IncreaseQty(ctx, id) }),
	"dec":      lineCommand(func(ctx context.Context, c *cli, id string) types.Result { return c.tab.Cart.DecreaseQty(ctx, id) }),
	"remove":   lineCommand(func(ctx context.Context, c *cli, id string) types.Result { return c.tab.Cart.RemoveFromCart(ctx, id) }),
	"set":      cmdSet,
	"clear":    cmdClear,
	"refresh":  cmdRefresh,
	"watch":    cmdWatch,
}

func (c *cli) result(res types.Result) error {
	if !res.OK {
		return errors.New(res.Reason)
	}
	return c.printCart()
}

func (c *cli) printCart() error {
	lines := c.tab.Cart.Lines()
	if len(lines) == 0 {
		_, err := fmt.Fprintln(c.out, "cart is empty")
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice, l.Subtotal())
	}
	fmt.Fprintf(w, "\t\t%d\t\t%.2f\n", c.tab.Cart.ItemCount(), c.tab.Cart.Subtotal())
	return w.Flush()
}

func cmdRegister(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var reg types.Registration
	fs.StringVar(&reg.Email, "email", "", "account email")
	fs.StringVar(&reg.Password, "password", "", "account password")
	fs.StringVar(&reg.FirstName, "first", "", "first name")
	fs.StringVar(&reg.LastName, "last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if res := c.tab.Session.Register(ctx, reg); !res.OK {
		return errors.New(res.Reason)
	}
	_, err := fmt.Fprintln(c.out, "account created, you can now log in")
	return err
}

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	var creds types.Credentials
	fs.StringVar(&creds.Email, "email", "", "account email")
	fs.StringVar(&creds.Password, "password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if res := c.tab.Session.Login(ctx, creds); !res.OK {
		return errors.New(res.Reason)
	}
	if err := c.tab.Cart.RefreshCart(ctx); err != nil {
		return err
	}
	return cmdWhoami(ctx, c, nil)
}

func cmdLogout(ctx context.Context, c *cli, _ []string) error {
	if err := c.tab.Session.Logout(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.out, "signed out")
	return err
}

func cmdWhoami(_ context.Context, c *cli, _ []string) error {
	sess := c.tab.Session.Session()
	if !c.tab.Session.IsAuthenticated() || sess.User == nil {
		_, err := fmt.Fprintln(c.out, "not signed in")
		return err
	}
	_, err := fmt.Fprintf(c.out, "%s (%s)\n", sess.User.Email, c.tab.Session.State())
	return err
}

func cmdProducts(ctx context.Context, c *cli, _ []string) error {
	products, err := c.app.Client.Products(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tRESERVE")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\n", p.ID, p.Name, p.UnitPrice, p.Stock, p.ReserveMinimum)
	}
	return w.Flush()
}

func cmdCart(_ context.Context, c *cli, _ []string) error {
	return c.printCart()
}

func cmdAdd(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	productID := fs.String("product", "", "product id")
	qty := fs.Int("qty", 1, "units to add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" {
		return errors.New("-product is required")
	}
	p, err := c.app.Client.Product(ctx, *productID)
	if err != nil {
		return err
	}
	return c.result(c.tab.Cart.AddToCart(ctx, p, *qty))
}

func lineCommand(fn func(ctx context.Context, c *cli, productID string) types.Result) command {
	return func(ctx context.Context, c *cli, args []string) error {
		if len(args) != 1 {
			return errors.New("expected one product id")
		}
		return c.result(fn(ctx, c, args[0]))
	}
}

func cmdSet(ctx context.Context, c *cli, args []string) error {
	if len(args) != 2 {
		return errors.New("expected a product id and a quantity")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("quantity %q: %w", args[1], err)
	}
	return c.result(c.tab.Cart.SetQty(ctx, args[0], qty))
}

func cmdClear(ctx context.Context, c *cli, _ []string) error {
	return c.result(c.tab.Cart.ClearCart(ctx))
}

func cmdRefresh(ctx context.Context, c *cli, _ []string) error {
	if err := c.tab.Cart.RefreshCart(ctx); err != nil {
		return err
	}
	return c.printCart()
}

func cmdWatch(ctx context.Context, c *cli, _ []string) error {
	c.tab.Session.OnStateChange(func(from, to types.State) {
		fmt.Fprintf(c.out, "session: %s -> %s\n", from, to)
	})
	c.tab.Cart.OnChange(func(lines []types.CartLine) {
		fmt.Fprintf(c.out, "cart: %d lines\n", len(lines))
	})
	fmt.Fprintf(c.out, "watching as %s, session %s\n", c.tab.View.Origin(), c.tab.Session.State())
	<-ctx.Done()
	return nil
}
