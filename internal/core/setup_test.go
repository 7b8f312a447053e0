package core_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"inventory-admin/internal/core"
	"inventory-admin/internal/store/sqlite"

	"github.com/stretchr/testify/require"
)

// testEnv wires every service over a fresh SQLite file.
type testEnv struct {
	ctx     context.Context
	store   *sqlite.Store
	inv     core.InventoryService
	audit   core.AuditService
	catalog core.CatalogService
	stock   core.StockService
	users   core.UserService
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := stepClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), time.Second)
	return &testEnv{
		ctx:     ctx,
		store:   store,
		inv:     core.NewInventoryService(store, nil, clock),
		audit:   core.NewAuditService(store),
		catalog: core.NewCatalogService(store),
		stock:   core.NewStockService(store),
		users:   core.NewUserService(store, nil, clock),
	}
}

// createProduct inserts a product with the given stock and a 10.00 price.
func (e *testEnv) createProduct(t *testing.T, sku, name string, onHand int64) *core.Product {
	t.Helper()
	p, err := e.inv.CreateProduct(e.ctx, core.NewProduct{
		SKU:        sku,
		Name:       name,
		PriceCents: 1000,
		CostCents:  600,
		OnHand:     onHand,
	}, core.Actor{})
	require.NoError(t, err)
	return p
}

// createActor inserts an admin user and returns it as an Actor.
func (e *testEnv) createActor(t *testing.T, username string) core.Actor {
	t.Helper()
	u, err := e.users.CreateUser(e.ctx, core.NewUser{Username: username, Password: "secret", FullName: username})
	require.NoError(t, err)
	return core.Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (e *testEnv) onHand(t *testing.T, id int64) (onHand, sold int64) {
	t.Helper()
	p, err := e.catalog.GetProduct(e.ctx, id)
	require.NoError(t, err)
	return p.OnHand, p.Sold
}
