package viewmodel

import (
	"testing"

	"vending_client/internal/vending"

	"github.com/stretchr/testify/assert"
)

func activeSnapshot(inserted string, selected ...vending.SelectedProduct) Snapshot {
	return Snapshot{Transaction: &TransactionView{
		InsertedMoney:    dec(inserted),
		SelectedProducts: selected,
		Status:           StatusActive,
	}}
}

func product(id, price string, quantity int) vending.Product {
	return vending.Product{ID: id, Name: id, Price: dec(price), Quantity: quantity}
}

func TestEligibility_Affordability(t *testing.T) {
	s := activeSnapshot("5", sel("soda", "2"))

	e := s.Eligibility(product("chips", "3", 4))
	assert.True(t, e.Selectable)
	assert.True(t, e.Remaining.Equal(dec("3")))

	e = s.Eligibility(product("chips", "3.01", 4))
	assert.False(t, e.Selectable)
	assert.Equal(t, ReasonInsufficientBalance, e.Reason)
	assert.True(t, e.Shortfall.Equal(dec("0.01")))
}

func TestEligibility_SelectedAlwaysToggleable(t *testing.T) {
	s := activeSnapshot("5", sel("soda", "2"), sel("pricey", "3.01"))

	e := s.Eligibility(product("pricey", "3.01", 4))
	assert.True(t, e.Selectable)
	assert.True(t, e.Selected)
}

func TestEligibility_NoTransaction(t *testing.T) {
	e := Snapshot{}.Eligibility(product("chips", "1", 4))
	assert.False(t, e.Selectable)
	assert.Equal(t, ReasonNoTransaction, e.Reason)
}

func TestEligibility_OutOfStockWinsOverSelection(t *testing.T) {
	s := activeSnapshot("10", sel("water", "1"))

	e := s.Eligibility(product("water", "1", 0))
	assert.False(t, e.Selectable)
	assert.Equal(t, ReasonOutOfStock, e.Reason)
}

func TestEligibility_BusyWhileLoading(t *testing.T) {
	s := activeSnapshot("10")
	s.Mutating = true

	e := s.Eligibility(product("chips", "1", 4))
	assert.False(t, e.Selectable)
	assert.Equal(t, ReasonBusy, e.Reason)
}

func TestCanComplete(t *testing.T) {
	assert.False(t, Snapshot{}.CanComplete())
	assert.False(t, activeSnapshot("5").CanComplete())
	assert.True(t, activeSnapshot("5", sel("a", "2"), sel("b", "3")).CanComplete())
	assert.False(t, activeSnapshot("4.99", sel("a", "2"), sel("b", "3")).CanComplete())
}
