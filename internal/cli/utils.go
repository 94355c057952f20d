package cli

import (
	"errors"
	"time"

	"vending_client/internal/money"
	"vending_client/internal/tui"
	"vending_client/internal/vending"
	"vending_client/internal/viewmodel"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type response struct {
	Command       string        `json:"command"`
	Products      []productView `json:"products,omitempty"`
	Denominations []string      `json:"denominations,omitempty"`
	Transaction   *statusView   `json:"transaction,omitempty"`
	Receipt       *receiptView  `json:"receipt,omitempty"`
	Calls         []callRecord  `json:"calls,omitempty"`
}

type productView struct {
	Slot       string          `json:"slot"`
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Selectable bool            `json:"selectable"`
	Selected   bool            `json:"selected,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type statusView struct {
	Active        bool                      `json:"active"`
	InsertedMoney decimal.Decimal           `json:"inserted_money"`
	TotalCost     decimal.Decimal           `json:"total_cost"`
	Remaining     decimal.Decimal           `json:"remaining"`
	Selected      []vending.SelectedProduct `json:"selected_products"`
	CanComplete   bool                      `json:"can_complete"`
}

type receiptView struct {
	Outcome       string                    `json:"outcome"`
	Products      []vending.SelectedProduct `json:"selected_products"`
	Total         decimal.Decimal           `json:"total"`
	Change        decimal.Decimal           `json:"change"`
	ReturnedMoney []decimal.Decimal         `json:"returned_money"`
}

type callRecord struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
	MS   int64    `json:"ms"`
	OK   bool     `json:"ok"`
	Err  string   `json:"err,omitempty"`
}

// userError carries a message meant for the terminal while keeping the
// original error for errors.Is.
type userError struct {
	message string
	err     error
}

func (e userError) Error() string {
	return e.message
}

func (e userError) Unwrap() error {
	return e.err
}

func trackCall[T any](logger *zap.Logger, name string, args []string, fn func() (T, error)) (T, callRecord, error) {
	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)
	record := callRecord{
		Name: name,
		Args: args,
		MS:   elapsed.Milliseconds(),
		OK:   err == nil,
	}
	if err != nil {
		record.Err = err.Error()
	}
	logger.Info("command finished",
		zap.String("name", name),
		zap.Strings("args", args),
		zap.Int64("ms", record.MS),
		zap.Bool("ok", record.OK),
		zap.String("err", record.Err),
	)
	return result, record, err
}

func friendlyError(err error) error {
	var apiErr *vending.APIError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, viewmodel.ErrNoTransaction):
		return userError{message: "No transaction: insert money first.", err: err}
	case errors.Is(err, money.ErrUnknownDenomination):
		return userError{message: "Unknown denomination: use 0.5, 1, 2, 5 or 10.", err: err}
	case errors.Is(err, vending.ErrNotFound):
		return userError{message: "Not found: the product or transaction does not exist on the machine.", err: err}
	case errors.Is(err, vending.ErrConflict):
		return userError{message: "Rejected by the machine: " + err.Error(), err: err}
	case errors.As(err, &apiErr):
		return userError{message: "Machine error: " + apiErr.Status, err: err}
	default:
		return err
	}
}

func productViews(s viewmodel.Snapshot) []productView {
	views := make([]productView, 0, len(s.Products))
	for i, p := range s.Products {
		e := s.Eligibility(p)
		views = append(views, productView{
			Slot:       tui.SlotLabel(i),
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price,
			Quantity:   p.Quantity,
			Selectable: e.Selectable,
			Selected:   e.Selected,
			Reason:     string(e.Reason),
		})
	}
	return views
}

func statusResponse(s viewmodel.Snapshot) response {
	return response{Transaction: &statusView{
		Active:        s.Active(),
		InsertedMoney: s.InsertedMoney(),
		TotalCost:     s.TotalCost(),
		Remaining:     s.RemainingBalance(),
		Selected:      s.SelectedProducts(),
		CanComplete:   s.CanComplete(),
	}}
}

func receiptResponse(s viewmodel.Snapshot) response {
	if s.Receipt == nil {
		return statusResponse(s)
	}
	order := s.Receipt.Order
	returned := make([]decimal.Decimal, 0, len(order.ReturnedMoney))
	for _, m := range order.ReturnedMoney {
		returned = append(returned, m.Value)
	}
	return response{Receipt: &receiptView{
		Outcome:       string(s.Receipt.Outcome),
		Products:      order.SelectedProducts,
		Total:         order.TotalCost(),
		Change:        order.TotalChange(),
		ReturnedMoney: returned,
	}}
}
