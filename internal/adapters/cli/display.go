package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"inventory-admin/internal/app"
	"inventory-admin/internal/core"

	"github.com/shopspring/decimal"
)

// money renders USD cents as a two-decimal amount.
func money(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func deref(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func printProducts(w io.Writer, result *app.ProductListResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 84))
	fmt.Fprintf(w, "  PRODUCTS (%d)\n", result.Count)
	fmt.Fprintln(w, strings.Repeat("=", 84))
	if len(result.Products) == 0 {
		fmt.Fprintln(w, "  No products found.")
		fmt.Fprintln(w, strings.Repeat("=", 84))
		return
	}
	fmt.Fprintf(w, "  %-6s %-12s %-28s %-14s %10s %8s %6s\n", "ID", "SKU", "NAME", "BRAND", "PRICE", "ON HAND", "SOLD")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, p := range result.Products {
		fmt.Fprintf(w, "  %-6d %-12s %-28s %-14s %10s %8d %6d\n",
			p.ID, p.SKU, truncate(p.Name, 28), truncate(p.Brand, 14), money(p.PriceCents), p.OnHand, p.Sold)
	}
	fmt.Fprintln(w, strings.Repeat("=", 84))
}

func printProduct(w io.Writer, p *core.Product) {
	fmt.Fprintf(w, "\nPRODUCT #%d  SKU %s\n", p.ID, p.SKU)
	fmt.Fprintf(w, "  Name:     %s\n", p.Name)
	if p.Brand != "" {
		fmt.Fprintf(w, "  Brand:    %s\n", p.Brand)
	}
	if p.Country != "" {
		fmt.Fprintf(w, "  Country:  %s\n", p.Country)
	}
	fmt.Fprintf(w, "  Price:    %s  (cost %s)\n", money(p.PriceCents), money(p.CostCents))
	fmt.Fprintf(w, "  On hand:  %d\n", p.OnHand)
	fmt.Fprintf(w, "  Sold:     %d\n", p.Sold)
	fmt.Fprintf(w, "  Updated:  %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	for _, url := range p.Images {
		fmt.Fprintf(w, "  Image:    %s\n", url)
	}
}

func printHistory(w io.Writer, result *app.HistoryResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 84))
	fmt.Fprintf(w, "  HISTORY  product #%d\n", result.ProductID)
	fmt.Fprintln(w, strings.Repeat("=", 84))
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  No history.")
		fmt.Fprintln(w, strings.Repeat("=", 84))
		return
	}
	for _, e := range result.Events {
		who := deref(e.Username, "-")
		when := e.CreatedAt.Format("2006-01-02 15:04:05")
		switch e.Kind {
		case core.EventStock:
			fmt.Fprintf(w, "  %s  %-12s STOCK %+6d  %-8s %s\n",
				when, truncate(who, 12), e.Change, e.Reason, deref(e.Reference, ""))
		case core.EventEdit:
			fields := make([]string, 0, len(e.Changes))
			for k := range e.Changes {
				fields = append(fields, k)
			}
			sort.Strings(fields)
			parts := make([]string, 0, len(fields))
			for _, k := range fields {
				c := e.Changes[k]
				parts = append(parts, fmt.Sprintf("%s: %v → %v", k, c.From, c.To))
			}
			fmt.Fprintf(w, "  %s  %-12s EDIT  %s\n", when, truncate(who, 12), strings.Join(parts, "; "))
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 84))
}

func printStock(w io.Writer, result *app.StockResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-58s\n", "STOCK LEVELS")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	if len(result.Rows) == 0 {
		fmt.Fprintln(w, "  No products found.")
		fmt.Fprintln(w, strings.Repeat("=", 72))
		return
	}
	fmt.Fprintf(w, "  %-6s %-12s %-28s %8s %8s  %s\n", "ID", "SKU", "NAME", "ON HAND", "REFILLS", "")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, row := range result.Rows {
		flag := ""
		switch {
		case row.OnHand == 0:
			flag = "OUT"
		case row.OnHand < core.LowStockThreshold:
			flag = "LOW"
		}
		fmt.Fprintf(w, "  %-6d %-12s %-28s %8d %8d  %s\n",
			row.ID, row.SKU, truncate(row.Name, 28), row.OnHand, row.RefillCount, flag)
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func printStats(w io.Writer, s *core.StockStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "  %-46s\n", "STOCK SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "  %-28s %18d\n", "Products", s.TotalProducts)
	fmt.Fprintf(w, "  %-28s %18d\n", "Units on hand", s.TotalStock)
	fmt.Fprintf(w, "  %-28s %18d\n", fmt.Sprintf("Low stock (< %d)", s.LowStockBelow), s.LowStock)
	fmt.Fprintf(w, "  %-28s %18d\n", "Out of stock", s.OutOfStock)
	fmt.Fprintf(w, "  %-28s %18s\n", "Stock value", money(s.TotalValue))
	if len(s.RecentRefills) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 50))
		fmt.Fprintln(w, "  Recent refills")
		for _, r := range s.RecentRefills {
			fmt.Fprintf(w, "    #%-5d %-20s %+6d  %s\n",
				r.ID, truncate(r.ProductName, 20), r.Quantity, r.CreatedAt.Format("2006-01-02"))
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 50))
}

func printSales(w io.Writer, result *app.SaleListResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 84))
	fmt.Fprintf(w, "  %-80s\n", "SALES")
	fmt.Fprintln(w, strings.Repeat("=", 84))
	if len(result.Sales) == 0 {
		fmt.Fprintln(w, "  No sales recorded.")
		fmt.Fprintln(w, strings.Repeat("=", 84))
		return
	}
	fmt.Fprintf(w, "  %-6s %-19s %-24s %5s %10s  %s\n", "ID", "DATE", "PRODUCT", "QTY", "TOTAL", "BUYER")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, s := range result.Sales {
		fmt.Fprintf(w, "  %-6d %-19s %-24s %5d %10s  %s\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), truncate(s.ProductName, 24),
			s.Quantity, money(s.TotalCents), s.BuyerName)
	}
	fmt.Fprintln(w, strings.Repeat("=", 84))
}

func printSale(w io.Writer, s *core.Sale) {
	fmt.Fprintf(w, "\nSALE #%d\n", s.ID)
	fmt.Fprintf(w, "  Product:  #%d %s\n", s.ProductID, s.ProductName)
	fmt.Fprintf(w, "  Quantity: %d @ %s = %s\n", s.Quantity, money(s.UnitPriceCents), money(s.TotalCents))
	if s.BuyerName != "" {
		fmt.Fprintf(w, "  Buyer:    %s\n", s.BuyerName)
	}
	fmt.Fprintf(w, "  Date:     %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  products [query]                 list products, optionally filtered")
	fmt.Fprintln(w, "  product <id>                     show one product")
	fmt.Fprintln(w, "  history <id> [limit]             stock movements and edits, newest first")
	fmt.Fprintln(w, "  stock                            stock levels, lowest first")
	fmt.Fprintln(w, "  stats                            stock summary")
	fmt.Fprintln(w, "  sales                            list sales")
	fmt.Fprintln(w, "  adjust <id> <delta> [reason]     change stock (reason: adjust|purchase|sale)")
	fmt.Fprintln(w, "  refill <id> <qty> [notes]        record a restock")
	fmt.Fprintln(w, "  sell <id> <qty> <buyer>          record a sale")
	fmt.Fprintln(w, "  delete-sale <id>                 delete a sale and return its units")
	fmt.Fprintln(w, "  convert <cents> <currency>       convert a USD price")
	fmt.Fprintln(w, "  help                             show this help")
}
