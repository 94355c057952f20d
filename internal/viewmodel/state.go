package viewmodel

import (
	"vending_client/internal/vending"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusActive     Status = "active"
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// TransactionView is the client's belief about the open transaction. Values
// held in a Snapshot are never modified in place; the reducer replaces them.
type TransactionView struct {
	SelectedProducts []vending.SelectedProduct
	InsertedMoney    decimal.Decimal
	Status           Status
}

func (v TransactionView) TotalCost() decimal.Decimal {
	return vending.TotalPrice(v.SelectedProducts)
}

func (v TransactionView) RemainingBalance() decimal.Decimal {
	return v.InsertedMoney.Sub(v.TotalCost())
}

func (v TransactionView) IsSelected(productID string) bool {
	return vending.ContainsProduct(v.SelectedProducts, productID)
}

// trivial reports a view that carries nothing the backend would distinguish
// from "no transaction".
func (v TransactionView) trivial() bool {
	return !v.InsertedMoney.IsPositive() && len(v.SelectedProducts) == 0
}

// Receipt is the one-shot result of a closed transaction.
type Receipt struct {
	Order   vending.Order
	Outcome Status
}

type Snapshot struct {
	Products []vending.Product
	// Transaction is nil while no transaction is open.
	Transaction    *TransactionView
	CatalogLoading bool
	Mutating       bool
	Err            string
	Receipt        *Receipt

	// epoch changes on every backend-confirmed close.
	epoch        uint64
	moneySeq     uint64
	selectionSeq uint64
	clearedSeq   uint64
}

func (s Snapshot) Active() bool {
	return s.Transaction != nil
}

func (s Snapshot) Loading() bool {
	return s.CatalogLoading || s.Mutating
}

func (s Snapshot) SelectedProducts() []vending.SelectedProduct {
	if s.Transaction == nil {
		return nil
	}
	return s.Transaction.SelectedProducts
}

func (s Snapshot) InsertedMoney() decimal.Decimal {
	if s.Transaction == nil {
		return decimal.Zero
	}
	return s.Transaction.InsertedMoney
}

func (s Snapshot) TotalCost() decimal.Decimal {
	if s.Transaction == nil {
		return decimal.Zero
	}
	return s.Transaction.TotalCost()
}

func (s Snapshot) RemainingBalance() decimal.Decimal {
	if s.Transaction == nil {
		return decimal.Zero
	}
	return s.Transaction.RemainingBalance()
}

func (s Snapshot) CanComplete() bool {
	if s.Transaction == nil {
		return false
	}
	return len(s.Transaction.SelectedProducts) > 0 &&
		s.Transaction.InsertedMoney.GreaterThanOrEqual(s.Transaction.TotalCost())
}
