package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "MAD"

var ErrUnknownDenomination = errors.New("unknown denomination")

// Denominations are the coin and note values the machine accepts, smallest first.
var Denominations = []decimal.Decimal{
	decimal.RequireFromString("0.5"),
	decimal.NewFromInt(1),
	decimal.NewFromInt(2),
	decimal.NewFromInt(5),
	decimal.NewFromInt(10),
}

func IsDenomination(amount decimal.Decimal) bool {
	for _, d := range Denominations {
		if d.Equal(amount) {
			return true
		}
	}
	return false
}

// ParseDenomination accepts "5", "0.5", "5 MAD" or "5mad".
func ParseDenomination(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(trimmed), DefaultCurrency))
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if !IsDenomination(amount) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownDenomination, amount.String())
	}
	return amount, nil
}

func Format(amount decimal.Decimal) string {
	return FormatIn(amount, DefaultCurrency)
}

func FormatIn(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + currency
}

func Sum(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...)
}
