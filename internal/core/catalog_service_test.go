package core_test

import (
	"testing"

	"inventory-admin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, env *testEnv) {
	t.Helper()
	products := []core.NewProduct{
		{SKU: "1001", Name: "Arabica Beans", Brand: "Najjar", Country: "Lebanon", PriceCents: 1500, CostCents: 900},
		{SKU: "1002", Name: "Robusta Beans", Brand: "Lavazza", Country: "Italy", PriceCents: 1100, CostCents: 600},
		{SKU: "2001", Name: "Green Tea", Brand: "Ahmad", Country: "United Kingdom", PriceCents: 700, CostCents: 300},
	}
	for _, in := range products {
		_, err := env.inv.CreateProduct(env.ctx, in, core.Actor{})
		require.NoError(t, err)
	}
}

func skus(products []core.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.SKU
	}
	return out
}

func TestCatalog_ListProducts_Filters(t *testing.T) {
	env := setupTestEnv(t)
	seedCatalog(t, env)

	tests := []struct {
		name   string
		filter core.ProductFilter
		want   []string
	}{
		{"no filter, most recently updated first", core.ProductFilter{}, []string{"2001", "1002", "1001"}},
		{"query matches name case-insensitively", core.ProductFilter{Query: "BEANS"}, []string{"1002", "1001"}},
		{"query matches sku", core.ProductFilter{Query: "200"}, []string{"2001"}},
		{"query matches country", core.ProductFilter{Query: "ital"}, []string{"1002"}},
		{"brand filter", core.ProductFilter{Brand: "najj"}, []string{"1001"}},
		{"country and query combine", core.ProductFilter{Query: "beans", Country: "lebanon"}, []string{"1001"}},
		{"no match", core.ProductFilter{Query: "cocoa"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.catalog.ListProducts(env.ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, skus(got))
		})
	}
}

func TestCatalog_ListProducts_Images(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "5555", "Mug", 3)
	env.createProduct(t, "6666", "Saucer", 3)
	_, err := env.inv.AddProductImage(env.ctx, p.ID, "/uploads/mug.png", core.Actor{})
	require.NoError(t, err)

	products, err := env.catalog.ListProducts(env.ctx, core.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, got := range products {
		require.NotNil(t, got.Images)
		if got.ID == p.ID {
			assert.Equal(t, []string{"/uploads/mug.png"}, got.Images)
		} else {
			assert.Empty(t, got.Images)
		}
	}
}

func TestCatalog_ListPublicProducts(t *testing.T) {
	env := setupTestEnv(t)
	seedCatalog(t, env)

	public, err := env.catalog.ListPublicProducts(env.ctx, core.ProductFilter{Query: "tea"})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Green Tea", public[0].Name)
	assert.Equal(t, int64(700), public[0].PriceCents)
}

func TestCatalog_GetProduct(t *testing.T) {
	env := setupTestEnv(t)
	p := env.createProduct(t, "7777", "Kettle", 1)

	got, err := env.catalog.GetProduct(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", got.Name)
	assert.Equal(t, []string{}, got.Images)

	_, err = env.catalog.GetProduct(env.ctx, 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
