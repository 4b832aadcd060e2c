// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var (
	// ErrDifferentCurrencies is returned when an operation on an Amount instance is attempted with another Amount of a different currency (symbol).
	ErrDifferentCurrencies = errors.New("different currencies")

	// ErrNegativeAmount is returned when an Amount is read with a value below zero.
	ErrNegativeAmount = errors.New("negative amount")
)

// Amount represents a fixed-point quantity of a particular currency.
//
// Values are never converted into binary floating point so the string rendered
// into a payment file is exactly the value stored.
type Amount struct {
	value  decimal.Decimal
	symbol string // ISO 4217, i.e. EUR, GBP
}

// NewAmount returns an Amount object after validating the ISO 4217 currency symbol.
func NewAmount(symbol string, number string) (*Amount, error) {
	var amt Amount
	if err := amt.FromString(fmt.Sprintf("%s %s", symbol, number)); err != nil {
		return nil, err
	}
	return &amt, nil
}

// NewAmountFromDecimal returns an Amount for value after validating the currency symbol.
func NewAmountFromDecimal(symbol string, value decimal.Decimal) (*Amount, error) {
	unit, err := currency.ParseISO(symbol)
	if err != nil {
		return nil, err
	}
	if value.IsNegative() {
		return nil, ErrNegativeAmount
	}
	return &Amount{value: value, symbol: unit.String()}, nil
}

// Zero returns an empty Amount of the given currency.
func Zero(symbol string) Amount {
	return Amount{value: decimal.Zero, symbol: strings.ToUpper(symbol)}
}

func (a Amount) Currency() string {
	return a.symbol
}

func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) IsPositive() bool {
	return a.value.IsPositive()
}

func (a *Amount) Validate() error {
	if a == nil {
		return errors.New("nil Amount")
	}
	if _, err := currency.ParseISO(a.symbol); err != nil {
		return err
	}
	if a.value.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Scale returns the number of minor digits the currency uses, e.g. 2 for EUR and 0 for JPY.
func (a Amount) Scale() int32 {
	return CurrencyScale(a.symbol)
}

// CurrencyScale returns the standard number of decimal digits for an ISO 4217 symbol.
// Unknown symbols fall back to two digits.
func CurrencyScale(symbol string) int32 {
	unit, err := currency.ParseISO(symbol)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Exact reports whether the Amount can be rendered with the currency's digits without rounding.
func (a Amount) Exact() bool {
	return a.value.Equal(a.value.Truncate(a.Scale()))
}

// Format renders the quantity with exactly the currency's number of digits.
// Examples:
//   1000.00 (EUR)
//   1500 (JPY)
func (a Amount) Format() string {
	return a.value.StringFixed(a.Scale())
}

func (a Amount) Equal(other Amount) bool {
	return a.symbol == other.symbol && a.value.Equal(other.value)
}

// Plus returns an Amount of adding both Amount instances together.
// Currency symbols must match for Plus to return without errors.
func (a Amount) Plus(other Amount) (Amount, error) {
	if a.symbol != other.symbol {
		return a, ErrDifferentCurrencies
	}
	return Amount{value: a.value.Add(other.value), symbol: a.symbol}, nil
}

// String returns an amount formatted with the currency.
// Examples:
//   EUR 12.53
//   GBP 4.02
func (a *Amount) String() string {
	if a == nil || a.symbol == "" {
		return "EUR 0.00"
	}
	return fmt.Sprintf("%s %s", a.symbol, a.Format())
}

// ParseAmount attempts to read a string as a valid currency symbol and number.
// Examples:
//   EUR 12.53
func ParseAmount(in string) (*Amount, error) {
	amt := &Amount{}
	if err := amt.FromString(in); err != nil {
		return nil, err
	}
	return amt, nil
}

// FromString attempts to parse str as a valid currency symbol and
// the quantity.
// Examples:
//   EUR 12.53
//   GBP 4.02
func (a *Amount) FromString(str string) error {
	parts := strings.Fields(str)
	if len(parts) != 2 {
		return fmt.Errorf("invalid Amount format: %q", str)
	}

	sym, err := currency.ParseISO(parts[0])
	if err != nil {
		return err
	}
	value, err := decimal.NewFromString(parts[1])
	if err != nil {
		return fmt.Errorf("unable to read %s: %v", parts[1], err)
	}
	if value.IsNegative() {
		return ErrNegativeAmount
	}

	a.value = value
	a.symbol = sym.String()
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return a.FromString(s)
}
