package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/events"
	"golang.org/x/text/language"
)

func runCommand(ctx context.Context, a *app, cmd string, args []string, sessionOverride string, out io.Writer) error {
	sessionID := a.sessionID(ctx, sessionOverride)

	if cmd == "session" {
		if len(args) != 0 {
			return fmt.Errorf("%w: session takes no arguments", errUsage)
		}
		fmt.Fprintln(out, sessionID)
		return nil
	}

	count := -1
	unsubscribe := a.carts.Bus().Subscribe(events.CartCountUpdated, func(_ context.Context, e events.Event) {
		if p, ok := e.Payload.(events.CountUpdated); ok {
			count = p.Count
		}
	})
	defer unsubscribe()

	var (
		cart *domain.Cart
		err  error
	)
	switch cmd {
	case "get":
		if len(args) != 0 {
			return fmt.Errorf("%w: get takes no arguments", errUsage)
		}
		cart, err = a.carts.GetCart(ctx, sessionID)
	case "add":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: add <product> [quantity]", errUsage)
		}
		quantity := 1
		if len(args) == 2 {
			if quantity, err = parseQuantity(args[1]); err != nil {
				return err
			}
		}
		cart, err = a.carts.AddItem(ctx, sessionID, args[0], quantity)
	case "update":
		if len(args) != 2 {
			return fmt.Errorf("%w: update <item> <quantity>", errUsage)
		}
		quantity, perr := parseQuantity(args[1])
		if perr != nil {
			return perr
		}
		cart, err = a.carts.UpdateQuantity(ctx, sessionID, args[0], quantity)
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("%w: remove <item>", errUsage)
		}
		cart, err = a.carts.RemoveItem(ctx, sessionID, args[0])
	case "clear":
		if len(args) != 0 {
			return fmt.Errorf("%w: clear takes no arguments", errUsage)
		}
		cart, err = a.carts.ClearCart(ctx, sessionID)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err != nil {
		return err
	}

	printCart(out, cart, a.cfg.Locale)
	if count < 0 {
		fmt.Fprintln(out, "(cart service unreachable, showing cached cart)")
	}
	return nil
}

func parseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q is not a number", errUsage, s)
	}
	return q, nil
}

func printCart(out io.Writer, cart *domain.Cart, tag language.Tag) {
	fmt.Fprintf(out, "session %s\n", cart.SessionID())
	if cart.IsEmpty() {
		fmt.Fprintln(out, "cart is empty")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range cart.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			item.ID(), item.ProductID(), item.Quantity(),
			item.FormattedPrice(tag), item.FormattedSubtotal(tag))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%d item(s), total %s\n", cart.ItemCount(), cart.FormattedTotal(tag))
}
