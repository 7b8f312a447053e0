package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"inventory-admin/internal/core"
	"inventory-admin/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertProduct(t *testing.T, s *sqlite.Store, sku string) *core.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	p := &core.Product{SKU: sku, Name: "Item " + sku, PriceCents: 250, OnHand: 5, CreatedAt: now, UpdatedAt: now}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	require.NoError(t, tx.InsertProduct(ctx, p))
	require.NoError(t, tx.Commit(ctx))
	return p
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), sqlite.Config{})
	assert.Error(t, err)
}

func TestStore_RoundTripsProduct(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	p := insertProduct(t, s, "123")
	require.NotZero(t, p.ID)

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "123", got.SKU)
	assert.Equal(t, int64(250), got.PriceCents)
	assert.Nil(t, got.CreatedBy)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))

	_, err = s.GetProduct(context.Background(), p.ID+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	p := insertProduct(t, s, "200")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	locked, err := tx.LockProduct(ctx, p.ID)
	require.NoError(t, err)
	locked.OnHand = 99
	require.NoError(t, tx.UpdateProduct(ctx, locked))
	require.NoError(t, tx.InsertMovement(ctx, &core.StockMovement{
		ProductID: p.ID, Change: 94, Reason: core.ReasonAdjust, CreatedAt: time.Now(),
	}))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "second rollback is a no-op")

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.OnHand)
	movements, err := s.ListMovements(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestStore_CommitThenRollbackIsNoop(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutSetting(ctx, "k", "v"))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))
	assert.Error(t, tx.Commit(ctx))

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", settings["k"])
}

func TestStore_UniqueViolationIsConflict(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	insertProduct(t, s, "300")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	err = tx.InsertProduct(ctx, &core.Product{SKU: "300", Name: "dup", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestStore_SaleLifecycle(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	p := insertProduct(t, s, "400")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	sale := &core.Sale{ProductID: p.ID, Quantity: 2, UnitPriceCents: 250, TotalCents: 500, BuyerName: "Ali", CreatedAt: time.Now()}
	require.NoError(t, tx.InsertSale(ctx, sale))
	require.NoError(t, tx.Commit(ctx))

	got, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "400", got.SKU)
	assert.Equal(t, "Item 400", got.ProductName)
	assert.Nil(t, got.CreatedByName)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	locked, err := tx.LockSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), locked.TotalCents)
	require.NoError(t, tx.DeleteSale(ctx, sale.ID))
	assert.ErrorIs(t, tx.DeleteSale(ctx, sale.ID), core.ErrNotFound)
	require.NoError(t, tx.Commit(ctx))

	_, err = s.GetSale(ctx, sale.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_EditChangesRoundTrip(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	p := insertProduct(t, s, "500")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertEdit(ctx, &core.ProductEdit{
		ProductID: p.ID,
		Changes:   map[string]core.FieldChange{"name": {From: "Item 500", To: "Renamed"}},
		CreatedAt: time.Now(),
	}))
	require.NoError(t, tx.Commit(ctx))

	edits, err := s.ListEdits(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "Renamed", edits[0].Changes["name"].To)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := sqlite.Open(context.Background(), sqlite.Config{Path: path})
	require.NoError(t, err)
	p := insertProduct(t, s, "600")
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	got, err := reopened.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "600", got.SKU)
}

func TestStore_CountRefillsAndImages(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	a := insertProduct(t, s, "700")
	b := insertProduct(t, s, "701")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, tx.InsertRefill(ctx, &core.StockRefill{ProductID: a.ID, Quantity: 1, CreatedAt: time.Now()}))
	}
	require.NoError(t, tx.InsertImage(ctx, b.ID, "/one.png", nil, time.Now()))
	require.NoError(t, tx.InsertImage(ctx, b.ID, "/two.png", nil, time.Now()))
	require.NoError(t, tx.Commit(ctx))

	counts, err := s.CountRefills(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{a.ID: 3}, counts)

	images, err := s.ListImages(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, images[a.ID])
	assert.Equal(t, []string{"/two.png", "/one.png"}, images[b.ID])

	all, err := s.ListImages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_MissingReferenceIsNotFound(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "ledger.db"))
	p := insertProduct(t, s, "800")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	missingUser := int64(404)
	err = tx.InsertMovement(ctx, &core.StockMovement{
		ProductID: p.ID, UserID: &missingUser, Change: 1, Reason: core.ReasonAdjust, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = tx.InsertRefill(ctx, &core.StockRefill{ProductID: p.ID + 50, Quantity: 1, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
