package viewmodel

import (
	"vending_client/internal/vending"

	"github.com/shopspring/decimal"
)

type event interface {
	isEvent()
}

type (
	catalogRequested struct{}
	catalogLoaded    struct{ products []vending.Product }
	catalogFailed    struct{ message string }

	// Refresh results carry the epoch and sequence number stamped when the
	// request was issued.
	moneyRefreshed struct {
		value decimal.Decimal
		epoch uint64
		seq   uint64
	}
	selectionRefreshed struct {
		selected []vending.SelectedProduct
		epoch    uint64
		seq      uint64
	}

	mutationStarted   struct{}
	mutationSettled   struct{}
	mutationFailed    struct{ message string }
	completionStarted struct{}

	transactionClosed struct {
		order   vending.Order
		outcome Status
	}

	errorRaised      struct{ message string }
	errorDismissed   struct{}
	receiptDismissed struct{}
)

func (catalogRequested) isEvent()   {}
func (catalogLoaded) isEvent()      {}
func (catalogFailed) isEvent()      {}
func (moneyRefreshed) isEvent()     {}
func (selectionRefreshed) isEvent() {}
func (mutationStarted) isEvent()    {}
func (mutationSettled) isEvent()    {}
func (mutationFailed) isEvent()     {}
func (completionStarted) isEvent()  {}
func (transactionClosed) isEvent()  {}
func (errorRaised) isEvent()        {}
func (errorDismissed) isEvent()     {}
func (receiptDismissed) isEvent()   {}

// reduce is the only place the transaction view changes. It is pure: the
// input snapshot is not modified.
func reduce(s Snapshot, e event) Snapshot {
	switch e := e.(type) {
	case catalogRequested:
		s.CatalogLoading = true
		s.Err = ""
	case catalogLoaded:
		s.CatalogLoading = false
		s.Products = e.products
	case catalogFailed:
		s.CatalogLoading = false
		s.Err = e.message

	case moneyRefreshed:
		if s.stale(e.epoch, e.seq, s.moneySeq) {
			return s
		}
		s.moneySeq = e.seq
		if s.Transaction == nil {
			if e.value.IsPositive() {
				s.Transaction = &TransactionView{InsertedMoney: e.value, Status: StatusActive}
			}
			return s
		}
		view := *s.Transaction
		view.InsertedMoney = e.value
		return settleView(s, view, e.seq)
	case selectionRefreshed:
		if s.stale(e.epoch, e.seq, s.selectionSeq) {
			return s
		}
		s.selectionSeq = e.seq
		if s.Transaction == nil {
			if len(e.selected) > 0 {
				s.Transaction = &TransactionView{SelectedProducts: e.selected, Status: StatusActive}
			}
			return s
		}
		view := *s.Transaction
		view.SelectedProducts = e.selected
		return settleView(s, view, e.seq)

	case mutationStarted:
		s.Mutating = true
		s.Err = ""
	case mutationSettled:
		s.Mutating = false
	case mutationFailed:
		s.Mutating = false
		s.Err = e.message
		if s.Transaction != nil && s.Transaction.Status == StatusCompleting {
			view := *s.Transaction
			view.Status = StatusActive
			s.Transaction = &view
		}
	case completionStarted:
		if s.Transaction != nil {
			view := *s.Transaction
			view.Status = StatusCompleting
			s.Transaction = &view
		}
	case transactionClosed:
		s = clearView(s)
		s.Receipt = &Receipt{Order: e.order, Outcome: e.outcome}

	case errorRaised:
		s.Err = e.message
	case errorDismissed:
		s.Err = ""
	case receiptDismissed:
		s.Receipt = nil
	}
	return s
}

// stale reports a refresh issued before the last close, before the response
// that last emptied the view, or not newer than the last one applied to its
// field.
func (s Snapshot) stale(epoch, seq, fieldSeq uint64) bool {
	return epoch != s.epoch || seq <= s.clearedSeq || seq <= fieldSeq
}

// settleView installs a merged view, or drops it once it no longer carries
// money or selections. Only responses issued after seq may bring it back.
func settleView(s Snapshot, view TransactionView, seq uint64) Snapshot {
	if view.trivial() {
		s.Transaction = nil
		s.clearedSeq = seq
		return s
	}
	s.Transaction = &view
	return s
}

// clearView starts a new epoch so responses issued for the closed transaction
// cannot resurrect it.
func clearView(s Snapshot) Snapshot {
	s.Transaction = nil
	s.epoch++
	return s
}
