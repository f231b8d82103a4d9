// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package money renders and combines catalog prices. All amounts are in
// the store's single currency.
package money

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidValue    = errors.New("money: invalid amount")
	ErrNegativeValue   = errors.New("money: amount must not be negative")
	ErrTooManyDecimals = errors.New("money: amount has more than two decimal places")
)

const symbol = "$"

// Parse reads a user-entered price such as "12", "12.5" or "$12.50".
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), symbol))
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidValue, "%q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeValue
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrTooManyDecimals
	}
	return d, nil
}

// Render formats d as "$12.50", or "-$1.00" for negative amounts.
func Render(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + symbol + d.Neg().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}

// LineTotal returns price multiplied by quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Amount is a price sent to the API. It encodes as a bare JSON number
// rather than the quoted string decimal.Decimal produces.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d for the wire.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
