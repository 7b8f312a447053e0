package core_test

import (
	"errors"
	"sync"
	"testing"

	"inventory-admin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_CreateProduct(t *testing.T) {
	env := setupTestEnv(t)
	actor := env.createActor(t, "alice")

	p, err := env.inv.CreateProduct(env.ctx, core.NewProduct{
		SKU:        " 4006381 ",
		Name:       "  Espresso Beans ",
		Brand:      "Lavazza",
		Country:    "Italy",
		PriceCents: 1299,
		CostCents:  700,
		OnHand:     24,
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, "4006381", p.SKU)
	assert.Equal(t, "Espresso Beans", p.Name)
	assert.Equal(t, int64(24), p.OnHand)
	assert.Equal(t, []string{}, p.Images)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, actor.UserID, *p.CreatedBy)

	// Initial stock is not a movement.
	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestInventory_CreateProduct_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		in   core.NewProduct
	}{
		{"letters in sku", core.NewProduct{SKU: "AB12", Name: "Tea"}},
		{"empty sku", core.NewProduct{SKU: "", Name: "Tea"}},
		{"missing name", core.NewProduct{SKU: "123", Name: "  "}},
		{"negative price", core.NewProduct{SKU: "123", Name: "Tea", PriceCents: -1}},
		{"negative stock", core.NewProduct{SKU: "123", Name: "Tea", OnHand: -4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.inv.CreateProduct(env.ctx, tt.in, core.Actor{})
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestInventory_CreateProduct_DuplicateSKU(t *testing.T) {
	env := setupTestEnv(t)
	env.createProduct(t, "1001", "Green Tea", 5)

	_, err := env.inv.CreateProduct(env.ctx, core.NewProduct{SKU: "1001", Name: "Black Tea"}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestInventory_UpdateProduct_RecordsChangedFields(t *testing.T) {
	env := setupTestEnv(t)
	actor := env.createActor(t, "bob")
	p := env.createProduct(t, "2001", "Olive Oil", 8)

	updated, err := env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{
		Name:       core.Some("Olive Oil 1L"),
		Brand:      core.Some("Kalamata"),
		PriceCents: core.Some(int64(1000)), // unchanged
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, "Olive Oil 1L", updated.Name)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	edits, err := env.store.ListEdits(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Len(t, edits[0].Changes, 2)
	assert.Equal(t, core.FieldChange{From: "Olive Oil", To: "Olive Oil 1L"}, edits[0].Changes["name"])
	assert.Equal(t, core.FieldChange{From: "", To: "Kalamata"}, edits[0].Changes["brand"])
	require.NotNil(t, edits[0].Username)
	assert.Equal(t, "bob", *edits[0].Username)
}

func TestInventory_UpdateProduct_NoChangeWritesNoEdit(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "2002", "Honey", 3)

	updated, err := env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{Name: core.Some(" Honey ")}, core.Actor{})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	edits, err := env.store.ListEdits(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestInventory_UpdateProduct_Errors(t *testing.T) {
	env := setupTestEnv(t)
	env.createProduct(t, "3001", "Rice", 1)
	p := env.createProduct(t, "3002", "Lentils", 1)

	_, err := env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{SKU: core.Some("3001")}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{OnHand: core.Some(int64(-1))}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = env.inv.UpdateProduct(env.ctx, 9999, core.ProductPatch{Name: core.Some("x")}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInventory_UpdateProduct_NegativeSoldDoesNotBlockEdits(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "3101", "Chickpeas", 10)

	sale, err := env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 3, BuyerName: "Rami"}, core.Actor{})
	require.NoError(t, err)
	_, err = env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{Sold: core.Some(int64(0))}, core.Actor{})
	require.NoError(t, err)
	require.NoError(t, env.inv.DeleteSale(env.ctx, sale.ID, core.Actor{}))

	_, sold := env.onHand(t, p.ID)
	require.Equal(t, int64(-3), sold)

	updated, err := env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{PriceCents: core.Some(int64(1200))}, core.Actor{})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), updated.PriceCents)
	assert.Equal(t, int64(-3), updated.Sold)

	// Patching sold itself still has to be non-negative.
	_, err = env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{Sold: core.Some(int64(-1))}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)
}

// A direct on_hand edit is recorded as a product edit only; no movement is
// written, so the movement sum stops matching on_hand.
func TestInventory_UpdateProduct_OnHandEditSkipsMovements(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "3201", "Bulgur", 8)

	_, err := env.inv.ChangeStock(env.ctx, p.ID, 2, core.ReasonPurchase, core.Actor{})
	require.NoError(t, err)

	updated, err := env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{OnHand: core.Some(int64(20))}, core.Actor{})
	require.NoError(t, err)
	assert.Equal(t, int64(20), updated.OnHand)

	edits, err := env.store.ListEdits(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	require.Len(t, edits[0].Changes, 1)
	onHandChange := edits[0].Changes["on_hand"]
	assert.EqualValues(t, 10, onHandChange.From)
	assert.EqualValues(t, 20, onHandChange.To)

	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1, "only the purchase is a movement")
	var sum int64
	for _, m := range movements {
		sum += m.Change
	}
	assert.Equal(t, int64(2), sum)
	assert.NotEqual(t, updated.OnHand-8, sum)
}

func TestInventory_ChangeStock(t *testing.T) {
	tests := []struct {
		name       string
		start      int64
		delta      int64
		reason     core.Reason
		wantOnHand int64
		wantSold   int64
		wantReason core.Reason
	}{
		{"purchase adds", 5, 7, core.ReasonPurchase, 12, 0, core.ReasonPurchase},
		{"empty reason is adjust", 5, -2, "", 3, 0, core.ReasonAdjust},
		{"adjust clamps at zero", 3, -5, core.ReasonAdjust, 0, 0, core.ReasonAdjust},
		{"sale counts as sold", 5, -2, core.ReasonSale, 3, 2, core.ReasonSale},
		{"positive sale does not touch sold", 5, 2, core.ReasonSale, 7, 0, core.ReasonSale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			p := env.createProduct(t, "4001", "Flour", tt.start)

			got, err := env.inv.ChangeStock(env.ctx, p.ID, tt.delta, tt.reason, core.Actor{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantOnHand, got.OnHand)
			assert.Equal(t, tt.wantSold, got.Sold)

			movements, err := env.store.ListMovements(env.ctx, p.ID)
			require.NoError(t, err)
			require.Len(t, movements, 1)
			assert.Equal(t, tt.delta, movements[0].Change, "movement keeps the requested delta")
			assert.Equal(t, tt.wantReason, movements[0].Reason)
			assert.Nil(t, movements[0].Reference)
		})
	}
}

func TestInventory_ChangeStock_Rejected(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "4002", "Sugar", 5)

	_, err := env.inv.ChangeStock(env.ctx, p.ID, 0, core.ReasonAdjust, core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = env.inv.ChangeStock(env.ctx, p.ID, 3, core.Reason("gift"), core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = env.inv.ChangeStock(env.ctx, p.ID, -6, core.ReasonSale, core.Actor{})
	assert.ErrorIs(t, err, core.ErrInsufficientStock)

	_, err = env.inv.ChangeStock(env.ctx, 9999, 1, core.ReasonAdjust, core.Actor{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	onHand, sold := env.onHand(t, p.ID)
	assert.Equal(t, int64(5), onHand)
	assert.Equal(t, int64(0), sold)

	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestInventory_CreateSale(t *testing.T) {
	env := setupTestEnv(t)
	actor := env.createActor(t, "cashier")
	p := env.createProduct(t, "5001", "Dates", 10)

	sale, err := env.inv.CreateSale(env.ctx, core.NewSale{
		ProductID:  p.ID,
		Quantity:   3,
		BuyerName:  " Sara ",
		BuyerPhone: "0500000000",
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), sale.UnitPriceCents)
	assert.Equal(t, int64(3000), sale.TotalCents)
	assert.Equal(t, "Sara", sale.BuyerName)
	assert.Equal(t, "5001", sale.SKU)
	assert.Equal(t, "Dates", sale.ProductName)

	onHand, sold := env.onHand(t, p.ID)
	assert.Equal(t, int64(7), onHand)
	assert.Equal(t, int64(3), sold)

	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, int64(-3), movements[0].Change)
	assert.Equal(t, core.ReasonSale, movements[0].Reason)
	require.NotNil(t, movements[0].Reference)
	assert.Equal(t, "Sale #1", *movements[0].Reference)

	// A later price change does not rewrite the sale.
	_, err = env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{PriceCents: core.Some(int64(2500))}, actor)
	require.NoError(t, err)
	stored, err := env.stock.GetSale(env.ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stored.UnitPriceCents)
	require.NotNil(t, stored.CreatedByName)
	assert.Equal(t, "cashier", *stored.CreatedByName)
}

func TestInventory_CreateSale_Rejected(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "5002", "Saffron", 2)

	_, err := env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 3, BuyerName: "Omar"}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrInsufficientStock)

	_, err = env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 0, BuyerName: "Omar"}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 1, BuyerName: " "}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = env.inv.CreateSale(env.ctx, core.NewSale{ProductID: 9999, Quantity: 1, BuyerName: "Omar"}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	onHand, sold := env.onHand(t, p.ID)
	assert.Equal(t, int64(2), onHand)
	assert.Equal(t, int64(0), sold)

	sales, err := env.stock.ListSales(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestInventory_DeleteSale_Compensates(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "6001", "Cardamom", 10)

	sale, err := env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 4, BuyerName: "Lina"}, core.Actor{})
	require.NoError(t, err)
	require.NoError(t, env.inv.DeleteSale(env.ctx, sale.ID, core.Actor{}))

	onHand, sold := env.onHand(t, p.ID)
	assert.Equal(t, int64(10), onHand)
	assert.Equal(t, int64(0), sold)

	_, err = env.stock.GetSale(env.ctx, sale.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, int64(4), movements[0].Change)
	assert.Equal(t, core.ReasonAdjust, movements[0].Reason)
	assert.Equal(t, "Sale #1 deleted", *movements[0].Reference)
	assert.Equal(t, int64(-4), movements[1].Change)

	err = env.inv.DeleteSale(env.ctx, sale.ID, core.Actor{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInventory_DeletedActorCannotWrite(t *testing.T) {
	env := setupTestEnv(t)
	ghost := env.createActor(t, "ghost")
	owner := core.Actor{Role: core.RoleOwner}
	p := env.createProduct(t, "6101", "Sumac", 5)
	require.NoError(t, env.users.DeleteUser(env.ctx, ghost.UserID, owner))

	_, err := env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 1, BuyerName: "Maya"}, ghost)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = env.inv.ChangeStock(env.ctx, p.ID, 2, core.ReasonPurchase, ghost)
	assert.ErrorIs(t, err, core.ErrNotFound)

	onHand, sold := env.onHand(t, p.ID)
	assert.Equal(t, int64(5), onHand)
	assert.Equal(t, int64(0), sold)
	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestInventory_CreateRefill(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "7001", "Coffee Filters", 1)

	refill, err := env.inv.CreateRefill(env.ctx, core.NewRefill{ProductID: p.ID, Quantity: 20, Notes: " supplier A "}, core.Actor{})
	require.NoError(t, err)
	assert.Equal(t, "supplier A", refill.Notes)
	assert.Equal(t, "Coffee Filters", refill.ProductName)

	onHand, _ := env.onHand(t, p.ID)
	assert.Equal(t, int64(21), onHand)

	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, core.ReasonPurchase, movements[0].Reason)
	assert.Equal(t, "Refill #1", *movements[0].Reference)

	_, err = env.inv.CreateRefill(env.ctx, core.NewRefill{ProductID: p.ID, Quantity: -2}, core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestInventory_AddProductImage(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "8001", "Teapot", 2)

	_, err := env.inv.AddProductImage(env.ctx, p.ID, "/uploads/a.jpg", core.Actor{})
	require.NoError(t, err)
	images, err := env.inv.AddProductImage(env.ctx, p.ID, "/uploads/b.jpg", core.Actor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/b.jpg", "/uploads/a.jpg"}, images)

	_, err = env.inv.AddProductImage(env.ctx, p.ID, "  ", core.Actor{})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = env.inv.AddProductImage(env.ctx, 9999, "/uploads/c.jpg", core.Actor{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

// Stock changes, sales and refills each write a movement, so the movements of
// a product sum to the difference between its current and initial stock.
func TestInventory_MovementsReconcileStock(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "9001", "Mint Tea", 10)

	sale, err := env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 3, BuyerName: "Nora"}, core.Actor{})
	require.NoError(t, err)
	_, err = env.inv.CreateRefill(env.ctx, core.NewRefill{ProductID: p.ID, Quantity: 5}, core.Actor{})
	require.NoError(t, err)
	_, err = env.inv.ChangeStock(env.ctx, p.ID, -2, core.ReasonSale, core.Actor{})
	require.NoError(t, err)
	require.NoError(t, env.inv.DeleteSale(env.ctx, sale.ID, core.Actor{}))

	onHand, sold := env.onHand(t, p.ID)
	assert.Equal(t, int64(13), onHand)
	assert.Equal(t, int64(2), sold)

	movements, err := env.store.ListMovements(env.ctx, p.ID)
	require.NoError(t, err)
	var sum int64
	for _, m := range movements {
		sum += m.Change
	}
	assert.Equal(t, onHand-10, sum)
}

func TestInventory_ConcurrentSalesDoNotOversell(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "9101", "Pistachios", 10)

	const buyers = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sold     int
		short    int
		failures []error
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 1, BuyerName: "walk-in"}, core.Actor{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, core.ErrInsufficientStock):
				short++
			default:
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, 10, sold)
	assert.Equal(t, buyers-10, short)

	onHand, soldCount := env.onHand(t, p.ID)
	assert.Equal(t, int64(0), onHand)
	assert.Equal(t, int64(10), soldCount)

	sales, err := env.stock.ListSales(env.ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 10)
}
