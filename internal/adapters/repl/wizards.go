package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inventory-admin/internal/app"
	"inventory-admin/internal/core"

	"github.com/shopspring/decimal"
)

// errCancelled ends a guided entry without saving.
var errCancelled = fmt.Errorf("cancelled")

func prompt(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	raw, err := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "cancel") || (err != nil && raw == "") {
		return "", errCancelled
	}
	return raw, nil
}

func promptInt(reader *bufio.Reader, w io.Writer, label string, def int64) (int64, error) {
	for {
		raw, err := prompt(reader, w, label)
		if err != nil {
			return 0, err
		}
		if raw == "" && def >= 0 {
			return def, nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && n >= 0 {
			return n, nil
		}
		fmt.Fprintln(w, "  Enter a whole number.")
	}
}

// promptPrice reads a display amount such as 12.50 and returns cents.
func promptPrice(reader *bufio.Reader, w io.Writer, label string) (int64, error) {
	for {
		raw, err := prompt(reader, w, label)
		if err != nil {
			return 0, err
		}
		if raw == "" {
			return 0, nil
		}
		d, err := decimal.NewFromString(raw)
		if err == nil && !d.IsNegative() {
			return d.Shift(2).Round(0).IntPart(), nil
		}
		fmt.Fprintln(w, "  Enter an amount like 12.50.")
	}
}

// handleNewSale runs a guided sale entry.
func handleNewSale(ctx context.Context, reader *bufio.Reader, w io.Writer, svc app.ApplicationService, actor core.Actor, args []string) error {
	fmt.Fprintln(w, "New sale. Type 'cancel' at any prompt to abort.")

	var productID int64
	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid product id: %s", args[0])
		}
		productID = id
	} else {
		id, err := promptInt(reader, w, "  Product ID", -1)
		if err != nil {
			return cancelled(w, err)
		}
		productID = id
	}

	p, err := svc.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s (SKU %s), %d on hand at %s\n",
		p.Name, p.SKU, p.OnHand, decimal.New(p.PriceCents, -2).StringFixed(2))

	qty, err := promptInt(reader, w, "  Quantity [1]", 1)
	if err != nil {
		return cancelled(w, err)
	}
	in := core.NewSale{ProductID: productID, Quantity: qty}
	fields := []struct {
		label string
		dst   *string
	}{
		{"  Buyer name", &in.BuyerName},
		{"  Buyer phone (optional)", &in.BuyerPhone},
		{"  Buyer email (optional)", &in.BuyerEmail},
		{"  Buyer address (optional)", &in.BuyerAddress},
	}
	for _, f := range fields {
		v, err := prompt(reader, w, f.label)
		if err != nil {
			return cancelled(w, err)
		}
		*f.dst = v
	}

	sale, err := svc.CreateSale(ctx, in, actor)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nSale #%d recorded: %d x %s = %s\n", sale.ID, sale.Quantity, p.Name,
		decimal.New(sale.TotalCents, -2).StringFixed(2))
	return nil
}

// handleNewProduct runs a guided product entry.
func handleNewProduct(ctx context.Context, reader *bufio.Reader, w io.Writer, svc app.ApplicationService, actor core.Actor) error {
	fmt.Fprintln(w, "New product. Type 'cancel' at any prompt to abort.")

	var in core.NewProduct
	text := []struct {
		label string
		dst   *string
	}{
		{"  SKU (digits)", &in.SKU},
		{"  Name", &in.Name},
		{"  Brand (optional)", &in.Brand},
		{"  Country (optional)", &in.Country},
		{"  Description (optional)", &in.Description},
	}
	for _, f := range text {
		v, err := prompt(reader, w, f.label)
		if err != nil {
			return cancelled(w, err)
		}
		*f.dst = v
	}

	var err error
	if in.PriceCents, err = promptPrice(reader, w, "  Price"); err != nil {
		return cancelled(w, err)
	}
	if in.CostCents, err = promptPrice(reader, w, "  Cost"); err != nil {
		return cancelled(w, err)
	}
	if in.OnHand, err = promptInt(reader, w, "  Opening stock [0]", 0); err != nil {
		return cancelled(w, err)
	}

	p, err := svc.CreateProduct(ctx, in, actor)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nProduct #%d created: %s (SKU %s), %d on hand\n", p.ID, p.Name, p.SKU, p.OnHand)
	return nil
}

func cancelled(w io.Writer, err error) error {
	if err == errCancelled {
		fmt.Fprintln(w, "Cancelled.")
		return nil
	}
	return err
}
