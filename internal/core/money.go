// Package core holds the donation domain: entities, validation, money and the
// derived values computed from them.
//
// This file contains the Money type, its JSON form and decimal rendering.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents is the largest single amount accepted (one trillion in major
// units). Running totals stay far inside int64 below it.
const MaxAmountCents int64 = 100_000_000_000_000

// Money is an amount in minor units (cents). Currencies are recorded alongside
// amounts, never converted.
type Money struct {
	Cents int64
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Validate reports ErrInvalidAmount for zero, negative or oversized amounts.
func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount as a decimal with two fractional digits.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount as "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units and rounds
// half-up to cents. Sign and zero checks are left to Validate; magnitudes past
// MaxAmountCents are rejected here so they never wrap.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Cents = 0
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(MaxAmountCents)) {
		return ErrInvalidAmount
	}
	m.Cents = cents.IntPart()
	return nil
}
