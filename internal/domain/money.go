package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// IsZeroCurrency reports whether the currency was never set, which is the case for
// the subtotal of an empty cart.
func (m Money) IsZeroCurrency() bool {
	return m.Currency == currency.Unit{}
}

func (m Money) Mul(quantity int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(quantity))),
		Currency: m.Currency,
	}
}

// Add sums two amounts of the same currency. A zero-currency value adopts the
// currency of the other operand.
func (m Money) Add(other Money) (Money, error) {
	switch {
	case m.IsZeroCurrency():
		return Money{Amount: m.Amount.Add(other.Amount), Currency: other.Currency}, nil
	case other.IsZeroCurrency():
		return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
	case m.Currency != other.Currency:
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}

	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) String() string {
	if m.IsZeroCurrency() {
		return m.Amount.StringFixed(2)
	}
	return m.Amount.StringFixed(2) + " " + m.Currency.String()
}
