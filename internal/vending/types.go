package vending

import (
	"encoding/json"

	"vending_client/internal/money"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (p Product) InStock() bool {
	return p.Quantity > 0
}

// SelectedProduct is a Product snapshot taken at selection time, without quantity.
type SelectedProduct struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Money struct {
	Value decimal.Decimal `json:"value"`
}

type Order struct {
	SelectedProducts []SelectedProduct `json:"selectedProducts"`
	ReturnedMoney    []Money           `json:"returnedMoney"`
}

func (o Order) TotalCost() decimal.Decimal {
	return TotalPrice(o.SelectedProducts)
}

func (o Order) TotalChange() decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(o.ReturnedMoney))
	for _, m := range o.ReturnedMoney {
		values = append(values, m.Value)
	}
	return money.Sum(values...)
}

func TotalPrice(selected []SelectedProduct) decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(selected))
	for _, p := range selected {
		prices = append(prices, p.Price)
	}
	return money.Sum(prices...)
}

// moneyRequest keeps the value a JSON number on the wire; decimal.Decimal
// marshals as a quoted string by default.
type moneyRequest struct {
	Value json.Number `json:"value"`
}

func newMoneyRequest(amount decimal.Decimal) moneyRequest {
	return moneyRequest{Value: json.Number(amount.String())}
}

func ContainsProduct(selected []SelectedProduct, productID string) bool {
	for _, p := range selected {
		if p.ID == productID {
			return true
		}
	}
	return false
}
