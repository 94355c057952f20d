package viewmodel

import (
	"testing"

	"vending_client/internal/vending"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sel(id, price string) vending.SelectedProduct {
	return vending.SelectedProduct{ID: id, Name: id, Price: dec(price)}
}

func TestReduce_MoneySynthesizesView(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})

	require.True(t, s.Active())
	assert.True(t, s.InsertedMoney().Equal(dec("5")))
	assert.Empty(t, s.SelectedProducts())
	assert.Equal(t, StatusActive, s.Transaction.Status)
}

func TestReduce_ZeroMoneyLeavesAbsent(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: decimal.Zero, seq: 1})
	assert.False(t, s.Active())
}

func TestReduce_SelectionSynthesizesView(t *testing.T) {
	s := reduce(Snapshot{}, selectionRefreshed{selected: []vending.SelectedProduct{sel("a", "2")}, seq: 1})

	require.True(t, s.Active())
	assert.True(t, s.InsertedMoney().IsZero())
	assert.Len(t, s.SelectedProducts(), 1)
}

func TestReduce_EmptySelectionLeavesAbsent(t *testing.T) {
	s := reduce(Snapshot{}, selectionRefreshed{selected: nil, seq: 1})
	assert.False(t, s.Active())
}

func TestReduce_MergeOverwritesOnlyItsField(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	s = reduce(s, selectionRefreshed{selected: []vending.SelectedProduct{sel("a", "2")}, seq: 2})
	s = reduce(s, moneyRefreshed{value: dec("7"), seq: 3})

	assert.True(t, s.InsertedMoney().Equal(dec("7")))
	require.Len(t, s.SelectedProducts(), 1)
	assert.Equal(t, "a", s.SelectedProducts()[0].ID)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	after := reduce(before, moneyRefreshed{value: dec("10"), seq: 2})

	assert.True(t, before.InsertedMoney().Equal(dec("5")))
	assert.True(t, after.InsertedMoney().Equal(dec("10")))
}

func TestReduce_StaleSequenceDropped(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 4})
	s = reduce(s, moneyRefreshed{value: dec("1"), seq: 3})

	assert.True(t, s.InsertedMoney().Equal(dec("5")))
}

func TestReduce_SequencesAreTrackedPerField(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 4})
	s = reduce(s, selectionRefreshed{selected: []vending.SelectedProduct{sel("a", "2")}, seq: 3})

	assert.Len(t, s.SelectedProducts(), 1)
}

func TestReduce_ClosedViewIsNotResurrected(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	staleEpoch := s.epoch

	s = reduce(s, transactionClosed{outcome: StatusCancelled})
	require.False(t, s.Active())

	s = reduce(s, moneyRefreshed{value: dec("5"), epoch: staleEpoch, seq: 2})
	s = reduce(s, selectionRefreshed{selected: []vending.SelectedProduct{sel("a", "2")}, epoch: staleEpoch, seq: 3})
	assert.False(t, s.Active())

	s = reduce(s, moneyRefreshed{value: dec("1"), epoch: s.epoch, seq: 4})
	assert.True(t, s.Active())
}

func TestReduce_TrivialMergeClearsView(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	epoch := s.epoch

	s = reduce(s, moneyRefreshed{value: decimal.Zero, epoch: epoch, seq: 2})
	assert.False(t, s.Active())
	assert.Equal(t, epoch, s.epoch)
}

func TestReduce_TrivialClearDropsOlderResponsesOnly(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	s = reduce(s, moneyRefreshed{value: decimal.Zero, seq: 3})
	require.False(t, s.Active())

	// Issued before the clearing response, so it cannot resurrect the view.
	s = reduce(s, selectionRefreshed{selected: []vending.SelectedProduct{sel("a", "2")}, seq: 2})
	assert.False(t, s.Active())

	s = reduce(s, moneyRefreshed{value: dec("2"), seq: 4})
	require.True(t, s.Active())
	assert.True(t, s.InsertedMoney().Equal(dec("2")))
}

func TestReduce_ZeroMoneyWithSelectionKeepsView(t *testing.T) {
	s := reduce(Snapshot{}, selectionRefreshed{selected: []vending.SelectedProduct{sel("a", "2")}, seq: 1})
	s = reduce(s, moneyRefreshed{value: decimal.Zero, seq: 2})
	assert.True(t, s.Active())
}

func TestReduce_MutationLifecycle(t *testing.T) {
	s := reduce(Snapshot{Err: "old"}, mutationStarted{})
	assert.True(t, s.Mutating)
	assert.Empty(t, s.Err)

	s = reduce(s, mutationFailed{message: "boom"})
	assert.False(t, s.Mutating)
	assert.Equal(t, "boom", s.Err)

	s = reduce(s, errorDismissed{})
	assert.Empty(t, s.Err)
}

func TestReduce_CompletionFailureRestoresStatus(t *testing.T) {
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	s = reduce(s, mutationStarted{})
	s = reduce(s, completionStarted{})
	assert.Equal(t, StatusCompleting, s.Transaction.Status)

	s = reduce(s, mutationFailed{message: "nope"})
	require.True(t, s.Active())
	assert.Equal(t, StatusActive, s.Transaction.Status)
}

func TestReduce_ReceiptLifecycle(t *testing.T) {
	order := vending.Order{SelectedProducts: []vending.SelectedProduct{sel("a", "2")}}
	s := reduce(Snapshot{}, moneyRefreshed{value: dec("5"), seq: 1})
	s = reduce(s, transactionClosed{order: order, outcome: StatusCompleted})

	require.NotNil(t, s.Receipt)
	assert.Equal(t, StatusCompleted, s.Receipt.Outcome)
	assert.False(t, s.Active())

	s = reduce(s, receiptDismissed{})
	assert.Nil(t, s.Receipt)
}

func TestReduce_Catalog(t *testing.T) {
	s := reduce(Snapshot{Err: "stale"}, catalogRequested{})
	assert.True(t, s.CatalogLoading)
	assert.True(t, s.Loading())
	assert.Empty(t, s.Err)

	products := []vending.Product{{ID: "a", Price: dec("1"), Quantity: 1}}
	s = reduce(s, catalogLoaded{products: products})
	assert.False(t, s.CatalogLoading)
	assert.Equal(t, products, s.Products)

	s = reduce(s, catalogFailed{message: "down"})
	assert.Equal(t, products, s.Products)
	assert.Equal(t, "down", s.Err)
}
