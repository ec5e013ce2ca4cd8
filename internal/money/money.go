// Package money represents monetary amounts as integer minor units to keep
// share arithmetic exact. Binary floats are never used for balances.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// minorDigits is the minor-unit exponent applied to every currency.
// All supported currencies use two decimal places (cents).
const minorDigits = 2

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrEmptyCurrency    = errors.New("currency can't be empty")
)

// Money is an amount in minor units of a fixed currency.
// The zero value is "no amount" and has no currency.
type Money struct {
	// Units is the amount in minor units (e.g. cents). May be negative
	// where Money represents a net balance; absolute shares are never
	// negative.
	Units int64

	// Currency is the ISO 4217 code, e.g. "USD".
	Currency string
}

// New returns a Money of the given minor units and currency.
func New(units int64, currency string) Money {
	return Money{Units: units, Currency: currency}
}

// Parse converts a decimal string like "50.00" into minor units.
// Fractions beyond the minor-unit exponent are rejected rather than rounded,
// so callers can never silently lose sub-cent amounts.
func Parse(s, currency string) (Money, error) {
	if currency == "" {
		return Money{}, ErrEmptyCurrency
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(minorDigits)
	if !scaled.IsInteger() {
		return Money{}, fmt.Errorf("amount %q has more than %d decimal places", s, minorDigits)
	}
	return Money{Units: scaled.IntPart(), Currency: currency}, nil
}

// Add returns m + o. The currencies must match.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Units: m.Units + o.Units, Currency: m.Currency}, nil
}

// Sub returns m - o. The currencies must match.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Units: m.Units - o.Units, Currency: m.Currency}, nil
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Units: -m.Units, Currency: m.Currency}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Units > 0
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Units == 0
}

// Decimal returns the amount as an exact decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Units, -minorDigits)
}

// String formats the amount as "12.34 USD".
func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits) + " " + m.Currency
}
