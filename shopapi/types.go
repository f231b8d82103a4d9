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

package shopapi

// types.go defines the wire types of the storefront REST API.

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/prajit96/ecommerce-platform/money"
)

// Product is a catalog product.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ProductInput is the body of product create and update calls.
type ProductInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       money.Amount `json:"price"`
	Quantity    int          `json:"quantity"`
}

// Course is a catalog course.
type Course struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Duration    Text            `json:"duration"`
	Instructor  string          `json:"instructor"`
}

// CourseInput is the body of course create and update calls.
type CourseInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Price       money.Amount `json:"price"`
	Duration    string       `json:"duration"`
	Instructor  string       `json:"instructor"`
}

// Text is a free-form field the API may hold as a string or a number,
// e.g. a course duration of "6 weeks" or 40.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

// ItemKind tells products and courses apart in wishlist references.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindCourse  ItemKind = "course"
)

// ItemRef identifies a catalog item.
type ItemRef struct {
	Kind ItemKind
	ID   string
}

// Ref is a reference to a catalog item inside a wishlist entry. The API
// sends either the bare id or the populated document.
type Ref struct {
	ID          string
	Name        string
	Description string
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var doc struct {
		ID          string `json:"_id"`
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.ID = doc.ID
	r.Name = doc.Name
	if r.Name == "" {
		r.Name = doc.Title
	}
	r.Description = doc.Description
	return nil
}

// WishlistEntry is one saved item. Exactly one of Product and Course is set.
type WishlistEntry struct {
	ID      string `json:"_id"`
	Product *Ref   `json:"product,omitempty"`
	Course  *Ref   `json:"course,omitempty"`
}

// Item returns the catalog item the entry references.
func (e WishlistEntry) Item() (ItemRef, bool) {
	if e.Course != nil && e.Course.ID != "" {
		return ItemRef{Kind: KindCourse, ID: e.Course.ID}, true
	}
	if e.Product != nil && e.Product.ID != "" {
		return ItemRef{Kind: KindProduct, ID: e.Product.ID}, true
	}
	return ItemRef{}, false
}

// Title returns a display name for the entry.
func (e WishlistEntry) Title() string {
	switch {
	case e.Product != nil && e.Product.Name != "":
		return e.Product.Name
	case e.Course != nil && e.Course.Name != "":
		return e.Course.Name
	}
	return "Unknown Product"
}

// Description returns a display description for the entry.
func (e WishlistEntry) Description() string {
	switch {
	case e.Product != nil && e.Product.Description != "":
		return e.Product.Description
	case e.Course != nil && e.Course.Description != "":
		return e.Course.Description
	}
	return "N/A"
}

// CartProduct is the product embedded in a cart line.
type CartProduct struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// CartLine is a quantity of one product pending checkout.
type CartLine struct {
	ID       string       `json:"_id"`
	Product  *CartProduct `json:"product"`
	Quantity int          `json:"quantity"`
}

// OrderItem is a line of a finalized order.
type OrderItem struct {
	ID       string       `json:"_id"`
	Product  *CartProduct `json:"product"`
	Quantity int          `json:"quantity"`
}

// Order is the server-computed order snapshot returned by checkout.
type Order struct {
	ID            string          `json:"_id"`
	User          string          `json:"user"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus string          `json:"paymentStatus"`
	Items         []*OrderItem    `json:"items"`
}

// Bill is the server-computed bill breakdown returned by checkout.
type Bill struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Taxes       decimal.Decimal `json:"taxes"`
	Discounts   decimal.Decimal `json:"discounts"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
}

// CheckoutResult wraps the checkout response.
type CheckoutResult struct {
	Order *Order `json:"order"`
	Bill  *Bill  `json:"bill"`
}

// SignupRequest is the body of POST /users.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResult reports the outcome of a signup that the server accepted.
type SignupResult struct {
	Message       string
	AlreadyExists bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type docsResponse[T any] struct {
	Docs []T `json:"docs"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
