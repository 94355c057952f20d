package viewmodel

import (
	"vending_client/internal/vending"

	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNoTransaction       Reason = "insert money first"
	ReasonOutOfStock          Reason = "out of stock"
	ReasonBusy                Reason = "busy"
	ReasonInsufficientBalance Reason = "insufficient balance"
)

type Eligibility struct {
	Selectable bool
	Selected   bool
	Reason     Reason
	// Remaining is the balance left after current selections.
	Remaining decimal.Decimal
	// Shortfall is only set for ReasonInsufficientBalance.
	Shortfall decimal.Decimal
}

// Eligibility decides whether p may be toggled right now. Unselecting an
// already selected product is allowed whatever the balance.
func (s Snapshot) Eligibility(p vending.Product) Eligibility {
	if s.Transaction == nil {
		return Eligibility{Reason: ReasonNoTransaction}
	}

	e := Eligibility{
		Selected:  s.Transaction.IsSelected(p.ID),
		Remaining: s.Transaction.RemainingBalance(),
	}
	switch {
	case !p.InStock():
		e.Reason = ReasonOutOfStock
	case s.Loading():
		e.Reason = ReasonBusy
	case e.Selected:
		e.Selectable = true
	case e.Remaining.GreaterThanOrEqual(p.Price):
		e.Selectable = true
	default:
		e.Reason = ReasonInsufficientBalance
		e.Shortfall = p.Price.Sub(e.Remaining)
	}
	return e
}
