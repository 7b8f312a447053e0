package repl_test

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"inventory-admin/internal/adapters/repl"
	"inventory-admin/internal/app"
	"inventory-admin/internal/core"
	"inventory-admin/internal/fx"
	"inventory-admin/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) app.ApplicationService {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return app.NewFromStore(store, fx.NewRateProvider(fx.Options{Sources: []fx.Source{}}), nil)
}

func session(svc app.ApplicationService, lines ...string) string {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	repl.Run(context.Background(), svc, core.Actor{}, in, &out)
	return out.String()
}

func TestRun_GuidedProductAndSale(t *testing.T) {
	svc := setupService(t)

	out := session(svc,
		"/new-product",
		"8001", "Zamzam Water", "", "Saudi Arabia", "",
		"4.25", "2", "12",
		"/new-sale 1",
		"3", "Faisal", "", "", "",
		"/exit",
	)
	assert.Contains(t, out, "Product #1 created: Zamzam Water (SKU 8001), 12 on hand")
	assert.Contains(t, out, "Sale #1 recorded: 3 x Zamzam Water = 12.75")
	assert.Contains(t, out, "Goodbye!")

	p, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(425), p.PriceCents)
	assert.Equal(t, int64(200), p.CostCents)
	assert.Equal(t, int64(9), p.OnHand)
}

func TestRun_CancelLeavesNoProduct(t *testing.T) {
	svc := setupService(t)

	out := session(svc, "/new-product", "9001", "cancel", "/quit")
	assert.Contains(t, out, "Cancelled.")

	result, err := svc.ListProducts(context.Background(), core.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.Count)
}

func TestRun_SearchAndErrors(t *testing.T) {
	svc := setupService(t)
	_, err := svc.CreateProduct(context.Background(), core.NewProduct{SKU: "77", Name: "Arabic Coffee"}, core.Actor{})
	require.NoError(t, err)

	out := session(svc, "coffee", "/product 99", "/bogus")
	assert.Contains(t, out, "PRODUCTS (1)")
	assert.Contains(t, out, "Arabic Coffee")
	assert.Contains(t, out, "Error: not found")
	assert.Contains(t, out, "Error: usage")
}

func TestRun_HelpListsGuidedCommands(t *testing.T) {
	svc := setupService(t)
	out := session(svc, "/help")
	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "new-sale")
}
