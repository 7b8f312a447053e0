// Package cli runs one-shot inventory commands against an ApplicationService.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inventory-admin/internal/app"
	"inventory-admin/internal/core"
)

// ErrUsage is returned for unknown commands or malformed arguments.
var ErrUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUsage}, args...)...)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usage("invalid %s: %s", what, s)
	}
	return id, nil
}

// Run executes one command. args[0] is the command name.
// Mutations are attributed to actor.
func Run(ctx context.Context, svc app.ApplicationService, actor core.Actor, w io.Writer, args []string) error {
	if len(args) == 0 {
		printHelp(w)
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "products", "ls":
		result, err := svc.ListProducts(ctx, core.ProductFilter{Query: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		printProducts(w, result)

	case "product", "show":
		if len(args) < 1 {
			return usage("product <id>")
		}
		id, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		p, err := svc.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		printProduct(w, p)

	case "history", "hist":
		if len(args) < 1 {
			return usage("history <id> [limit]")
		}
		id, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		limit := 0
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil || limit < 0 {
				return usage("invalid limit: %s", args[1])
			}
		}
		result, err := svc.GetProductHistory(ctx, id, limit)
		if err != nil {
			return err
		}
		printHistory(w, result)

	case "stock":
		result, err := svc.ListStock(ctx)
		if err != nil {
			return err
		}
		printStock(w, result)

	case "stats":
		stats, err := svc.GetStockStats(ctx)
		if err != nil {
			return err
		}
		printStats(w, stats)

	case "sales":
		result, err := svc.ListSales(ctx)
		if err != nil {
			return err
		}
		printSales(w, result)

	case "adjust":
		if len(args) < 2 {
			return usage("adjust <id> <delta> [reason]")
		}
		id, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usage("invalid delta: %s", args[1])
		}
		var reason core.Reason
		if len(args) > 2 {
			reason = core.Reason(strings.ToLower(args[2]))
		}
		p, err := svc.ChangeStock(ctx, app.ChangeStockRequest{ProductID: id, Delta: delta, Reason: reason}, actor)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Stock of #%d (%s) is now %d.\n", p.ID, p.Name, p.OnHand)

	case "refill":
		if len(args) < 2 {
			return usage("refill <id> <qty> [notes]")
		}
		id, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usage("invalid quantity: %s", args[1])
		}
		refill, err := svc.CreateRefill(ctx, core.NewRefill{
			ProductID: id,
			Quantity:  qty,
			Notes:     strings.Join(args[2:], " "),
		}, actor)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Refill #%d recorded: +%d units of product #%d.\n", refill.ID, refill.Quantity, refill.ProductID)

	case "sell":
		if len(args) < 3 {
			return usage("sell <id> <qty> <buyer>")
		}
		id, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		qty, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usage("invalid quantity: %s", args[1])
		}
		sale, err := svc.CreateSale(ctx, core.NewSale{
			ProductID: id,
			Quantity:  qty,
			BuyerName: strings.Join(args[2:], " "),
		}, actor)
		if err != nil {
			return err
		}
		printSale(w, sale)

	case "delete-sale":
		if len(args) < 1 {
			return usage("delete-sale <id>")
		}
		id, err := parseID(args[0], "sale id")
		if err != nil {
			return err
		}
		if err := svc.DeleteSale(ctx, id, actor); err != nil {
			return err
		}
		fmt.Fprintf(w, "Sale #%d deleted; units returned to stock.\n", id)

	case "convert":
		if len(args) < 2 {
			return usage("convert <cents> <currency>")
		}
		cents, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return usage("invalid cents: %s", args[0])
		}
		amount, err := svc.ConvertPrice(ctx, cents, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s USD = %s %s\n", money(cents), amount.StringFixed(2), strings.ToUpper(args[1]))

	case "help", "h":
		printHelp(w)

	default:
		return usage("unknown command %q (try help)", cmd)
	}
	return nil
}
