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

package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

type Payload interface {
	Validate() error
}

type LoginPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type SignupPayload struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=128"`
}

type ProductPayload struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"required,max=2000"`
	Price       string `validate:"required"`
	Quantity    int64  `validate:"gte=0"`
}

type CoursePayload struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"required,max=2000"`
	Price       string `validate:"required"`
	Duration    string `validate:"required,max=100"`
	Instructor  string `validate:"required,max=200"`
}

type AddToCartPayload struct {
	ProductID string `validate:"required"`
}

type WishlistTogglePayload struct {
	Kind     string `validate:"required,oneof=product course"`
	ItemID   string `validate:"required"`
	ItemName string `validate:"max=200"`
	Return   string `validate:"omitempty,startswith=/"`
}

type QuantityPayload struct {
	Quantity int64 `validate:"gte=1"`
}

func (p *LoginPayload) Validate() error          { return validate.Struct(p) }
func (p *SignupPayload) Validate() error         { return validate.Struct(p) }
func (p *ProductPayload) Validate() error        { return validate.Struct(p) }
func (p *CoursePayload) Validate() error         { return validate.Struct(p) }
func (p *AddToCartPayload) Validate() error      { return validate.Struct(p) }
func (p *WishlistTogglePayload) Validate() error { return validate.Struct(p) }
func (p *QuantityPayload) Validate() error       { return validate.Struct(p) }

// Reusable error response for validation errors.
func ValidationErrorResponse(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.New("invalid validation error format")
	}
	var msgs []string
	for _, err := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("Field '%s' is invalid: %s", err.Field(), err.Tag()))
	}
	return errors.New(strings.Join(msgs, "\n"))
}
