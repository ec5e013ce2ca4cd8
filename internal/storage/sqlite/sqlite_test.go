package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmate/tabmate/internal/calculator"
	"github.com/tabmate/tabmate/internal/models"
	"github.com/tabmate/tabmate/internal/money"
	"github.com/tabmate/tabmate/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestExpense(t *testing.T, groupID string) *models.Expense {
	t.Helper()
	expense, err := models.NewExpense(models.ExpenseProposal{
		Description:  "dinner",
		Amount:       money.New(6000, "USD"),
		PayerID:      "alice",
		GroupID:      groupID,
		Split:        calculator.SplitEqual,
		Participants: []string{"alice", "bob", "carol"},
	})
	require.NoError(t, err)
	return expense
}

func TestExpenseRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Roommates", Currency: "USD", Members: []string{"alice", "bob", "carol"}}
	require.NoError(t, store.CreateGroup(ctx, group))

	expense := newTestExpense(t, group.ID)
	require.NoError(t, store.CreateExpense(ctx, expense))

	got, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, expense, got)

	list, err := store.ListExpensesByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, expense.ID, list[0].ID)
}

func TestGetExpenseNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetExpense(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrExpenseNotFound)
}

func TestDeleteExpense(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expense := newTestExpense(t, "")
	require.NoError(t, store.CreateExpense(ctx, expense))
	require.NoError(t, store.DeleteExpense(ctx, expense.ID))

	_, err := store.GetExpense(ctx, expense.ID)
	assert.ErrorIs(t, err, models.ErrExpenseNotFound)
	assert.ErrorIs(t, store.DeleteExpense(ctx, expense.ID), models.ErrExpenseNotFound)
}

func TestSettleShare(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expense := newTestExpense(t, "")
	require.NoError(t, store.CreateExpense(ctx, expense))

	require.NoError(t, store.SettleShare(ctx, expense.ID, "bob"))
	// Idempotent.
	require.NoError(t, store.SettleShare(ctx, expense.ID, "bob"))

	got, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	share, err := got.Share("bob")
	require.NoError(t, err)
	assert.True(t, share.Settled)
	assert.Equal(t, int64(2000), share.Amount.Units)

	assert.ErrorIs(t, store.SettleShare(ctx, expense.ID, "dana"), models.ErrShareNotFound)
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", Currency: "EUR", Members: []string{"alice", "bob"}}
	require.NoError(t, store.CreateGroup(ctx, group))
	assert.NotEmpty(t, group.ID)
	assert.NotZero(t, group.CreatedAt)

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Members)

	require.NoError(t, store.AddGroupMembers(ctx, group.ID, []string{"bob", "carol"}))
	got, err = store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, got.Members)

	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	_, err = store.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrGroupNotFound)
	assert.ErrorIs(t, store.AddGroupMembers(ctx, "missing", []string{"x"}), storage.ErrGroupNotFound)
}

func TestSettlements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Roommates", Currency: "USD", Members: []string{"alice", "bob"}}
	require.NoError(t, store.CreateGroup(ctx, group))

	settlement := &models.Settlement{
		GroupID: group.ID,
		FromID:  "bob",
		ToID:    "alice",
		Amount:  money.New(2000, "USD"),
		Note:    "venmo",
	}
	require.NoError(t, store.CreateSettlement(ctx, settlement))
	assert.NotEmpty(t, settlement.ID)

	list, err := store.ListSettlementsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "venmo", list[0].Note)
	assert.Equal(t, int64(2000), list[0].Amount.Units)

	require.NoError(t, store.DeleteSettlement(ctx, settlement.ID))
	assert.ErrorIs(t, store.DeleteSettlement(ctx, settlement.ID), models.ErrSettlementNotFound)
}
