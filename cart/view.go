// Copyright 2024 Google LLC
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

// Package cart keeps a page-local copy of the user's cart lines and applies
// quantity changes once the API has acknowledged them.
package cart

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/prajit96/ecommerce-platform/inflight"
	"github.com/prajit96/ecommerce-platform/money"
	"github.com/prajit96/ecommerce-platform/shopapi"
)

var (
	// ErrMinimumQuantity is returned, without contacting the API, for a
	// change that would take a line below one unit.
	ErrMinimumQuantity = errors.New("cart: quantity cannot go below 1")
	// ErrLineNotFound is returned for a line id the view does not hold.
	ErrLineNotFound = errors.New("cart: line not found")
	// ErrSuperseded is returned when a newer change to the same line was
	// issued while this one was in flight. Its acknowledgment was dropped.
	ErrSuperseded = errors.New("cart: superseded by a newer request")
)

// Remote is the part of the API the cart needs.
type Remote interface {
	ListCart(ctx context.Context, token string) ([]*shopapi.CartLine, error)
	UpdateCartLine(ctx context.Context, token, lineID string, quantity int) error
	RemoveCartLine(ctx context.Context, token, lineID string) error
}

// View holds the cart lines for one page.
type View struct {
	remote  Remote
	token   string
	scope   string
	tracker *inflight.Tracker

	mu    sync.Mutex
	lines []shopapi.CartLine
}

// NewView returns an empty view. scope namespaces the in-flight keys,
// typically the session id; tracker may be nil to disable sequencing.
func NewView(remote Remote, token, scope string, tracker *inflight.Tracker) *View {
	return &View{remote: remote, token: token, scope: scope, tracker: tracker}
}

// Load replaces the local lines with the server's cart.
func (v *View) Load(ctx context.Context) error {
	lines, err := v.remote.ListCart(ctx, v.token)
	if err != nil {
		return errors.Wrap(err, "could not retrieve cart")
	}
	out := make([]shopapi.CartLine, 0, len(lines))
	for _, l := range lines {
		if l != nil {
			out = append(out, *l)
		}
	}
	v.mu.Lock()
	v.lines = out
	v.mu.Unlock()
	return nil
}

// Lines returns a copy of the current lines.
func (v *View) Lines() []shopapi.CartLine {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]shopapi.CartLine(nil), v.lines...)
}

// Line returns the line with the given id.
func (v *View) Line(id string) (shopapi.CartLine, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(id); i >= 0 {
		return v.lines[i], true
	}
	return shopapi.CartLine{}, false
}

// Increment raises the line's quantity by one.
func (v *View) Increment(ctx context.Context, id string) (int, error) {
	l, ok := v.Line(id)
	if !ok {
		return 0, ErrLineNotFound
	}
	return v.SetQuantity(ctx, id, l.Quantity+1)
}

// Decrement lowers the line's quantity by one. At quantity 1 it returns
// ErrMinimumQuantity without calling the API.
func (v *View) Decrement(ctx context.Context, id string) (int, error) {
	l, ok := v.Line(id)
	if !ok {
		return 0, ErrLineNotFound
	}
	if l.Quantity <= 1 {
		return l.Quantity, ErrMinimumQuantity
	}
	return v.SetQuantity(ctx, id, l.Quantity-1)
}

// SetQuantity sends the new absolute quantity for the line and applies it
// locally once acknowledged. On failure the local quantity is unchanged.
func (v *View) SetQuantity(ctx context.Context, id string, quantity int) (int, error) {
	if quantity < 1 {
		return v.quantity(id), ErrMinimumQuantity
	}

	tk, sequenced := v.begin(id)
	err := v.remote.UpdateCartLine(ctx, v.token, id, quantity)
	if sequenced && !v.tracker.Done(tk) {
		return v.quantity(id), ErrSuperseded
	}
	if err != nil {
		return v.quantity(id), errors.Wrapf(err, "could not update quantity of cart line %s", id)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(id); i >= 0 {
		v.lines[i].Quantity = quantity
	}
	return quantity, nil
}

// Remove deletes the line and drops it locally once acknowledged.
func (v *View) Remove(ctx context.Context, id string) error {
	tk, sequenced := v.begin(id)
	err := v.remote.RemoveCartLine(ctx, v.token, id)
	if sequenced && !v.tracker.Done(tk) {
		return ErrSuperseded
	}
	if err != nil {
		return errors.Wrapf(err, "could not remove cart line %s", id)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(id); i >= 0 {
		v.lines = append(v.lines[:i], v.lines[i+1:]...)
	}
	return nil
}

// Count returns the total number of units in the cart.
func (v *View) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, l := range v.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the sum of price times quantity over all lines. Lines
// whose product was not populated by the API count as zero.
func (v *View) Subtotal() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	totals := make([]decimal.Decimal, 0, len(v.lines))
	for _, l := range v.lines {
		if l.Product != nil {
			totals = append(totals, money.LineTotal(l.Product.Price, l.Quantity))
		}
	}
	return money.Sum(totals...)
}

func (v *View) quantity(id string) int {
	l, _ := v.Line(id)
	return l.Quantity
}

func (v *View) begin(id string) (inflight.Ticket, bool) {
	if v.tracker == nil {
		return inflight.Ticket{}, false
	}
	return v.tracker.Begin("cart:" + v.scope + ":" + id), true
}

// index must be called with v.mu held.
func (v *View) index(id string) int {
	for i := range v.lines {
		if v.lines[i].ID == id {
			return i
		}
	}
	return -1
}
