package core_test

import (
	"slices"
	"testing"
	"time"

	"inventory-admin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventKey struct {
	Kind core.EventKind
	ID   int64
}

func keysOf(events []core.HistoryEvent) []eventKey {
	out := make([]eventKey, len(events))
	for i, ev := range events {
		out[i] = eventKey{ev.Kind, ev.ID}
	}
	return out
}

func TestMergeHistory(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

	movements := []core.StockMovement{
		{ID: 4, CreatedAt: at(30), Change: 1, Reason: core.ReasonAdjust},
		{ID: 3, CreatedAt: at(20), Change: -1, Reason: core.ReasonSale},
		{ID: 2, CreatedAt: at(20), Change: 5, Reason: core.ReasonPurchase},
		{ID: 1, CreatedAt: at(5), Change: 2, Reason: core.ReasonAdjust},
	}
	edits := []core.ProductEdit{
		{ID: 9, CreatedAt: at(40)},
		{ID: 2, CreatedAt: at(20)},
		{ID: 1, CreatedAt: at(10)},
	}

	got := keysOf(slices.Collect(core.MergeHistory(movements, edits)))
	want := []eventKey{
		{core.EventEdit, 9},
		{core.EventStock, 4},
		{core.EventStock, 3},
		{core.EventStock, 2}, // same time and id as edit 2: stock first
		{core.EventEdit, 2},
		{core.EventEdit, 1},
		{core.EventStock, 1},
	}
	assert.Equal(t, want, got)
}

func TestMergeHistory_HigherIDWinsTie(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	movements := []core.StockMovement{{ID: 5, CreatedAt: t0}}
	edits := []core.ProductEdit{{ID: 7, CreatedAt: t0}}

	got := keysOf(slices.Collect(core.MergeHistory(movements, edits)))
	assert.Equal(t, []eventKey{{core.EventEdit, 7}, {core.EventStock, 5}}, got)
}

func TestMergeHistory_StopsEarly(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	movements := []core.StockMovement{{ID: 2, CreatedAt: t0.Add(time.Minute)}, {ID: 1, CreatedAt: t0}}

	var seen int
	for range core.MergeHistory(movements, nil) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
	assert.Empty(t, slices.Collect(core.MergeHistory(nil, nil)))
}

func TestAudit_GetHistory(t *testing.T) {
	env := setupTestEnv(t)
	actor := env.createActor(t, "auditor")
	p := env.createProduct(t, "1234", "Black Pepper", 10)

	_, err := env.inv.ChangeStock(env.ctx, p.ID, 5, core.ReasonPurchase, actor)
	require.NoError(t, err)
	_, err = env.inv.UpdateProduct(env.ctx, p.ID, core.ProductPatch{Country: core.Some("India")}, actor)
	require.NoError(t, err)
	_, err = env.inv.CreateSale(env.ctx, core.NewSale{ProductID: p.ID, Quantity: 2, BuyerName: "Yusuf"}, actor)
	require.NoError(t, err)

	events, err := env.audit.GetHistory(env.ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, core.EventStock, events[0].Kind)
	assert.Equal(t, int64(-2), events[0].Change)
	assert.Equal(t, core.EventEdit, events[1].Kind)
	assert.Contains(t, events[1].Changes, "country")
	assert.Equal(t, core.EventStock, events[2].Kind)
	assert.Equal(t, core.ReasonPurchase, events[2].Reason)
	for _, ev := range events {
		require.NotNil(t, ev.Username)
		assert.Equal(t, "auditor", *ev.Username)
	}

	limited, err := env.audit.GetHistory(env.ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, keysOf(events[:2]), keysOf(limited))

	_, err = env.audit.GetHistory(env.ctx, 9999, 0)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAudit_GetHistory_SurvivesUserDeletion(t *testing.T) {
	env := setupTestEnv(t)
	actor := env.createActor(t, "temp")
	p := env.createProduct(t, "2345", "Cinnamon", 4)

	_, err := env.inv.ChangeStock(env.ctx, p.ID, 1, core.ReasonAdjust, actor)
	require.NoError(t, err)
	require.NoError(t, env.users.DeleteUser(env.ctx, actor.UserID, core.Actor{}))

	events, err := env.audit.GetHistory(env.ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].UserID)
	assert.Nil(t, events[0].Username)
	assert.Equal(t, int64(1), events[0].Change)
}

func TestAudit_GetUserChanges(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.createActor(t, "alice")
	bob := env.createActor(t, "bob")
	p := env.createProduct(t, "3456", "Cumin", 10)

	_, err := env.inv.ChangeStock(env.ctx, p.ID, 2, core.ReasonPurchase, alice)
	require.NoError(t, err)
	_, err = env.inv.ChangeStock(env.ctx, p.ID, -1, core.ReasonAdjust, bob)
	require.NoError(t, err)
	_, err = env.inv.ChangeStock(env.ctx, p.ID, -3, core.ReasonSale, alice)
	require.NoError(t, err)

	changes, err := env.audit.GetUserChanges(env.ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", changes.User.Username)
	require.Len(t, changes.Movements, 2)
	assert.Equal(t, int64(-3), changes.Movements[0].Change)
	assert.Equal(t, int64(2), changes.Movements[1].Change)
	require.NotNil(t, changes.Movements[0].SKU)
	assert.Equal(t, "3456", *changes.Movements[0].SKU)

	bobChanges, err := env.audit.GetUserChanges(env.ctx, bob.UserID)
	require.NoError(t, err)
	assert.Len(t, bobChanges.Movements, 1)

	_, err = env.audit.GetUserChanges(env.ctx, 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
