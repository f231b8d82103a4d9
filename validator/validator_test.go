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
	"strings"
	"testing"
)

func TestPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"login ok", &LoginPayload{Email: "a@b.com", Password: "x"}, false},
		{"login bad email", &LoginPayload{Email: "nope", Password: "x"}, true},
		{"login missing password", &LoginPayload{Email: "a@b.com"}, true},
		{"signup ok", &SignupPayload{Name: "Ada", Email: "a@b.com", Password: "secret1"}, false},
		{"signup short password", &SignupPayload{Name: "Ada", Email: "a@b.com", Password: "x"}, true},
		{"product ok", &ProductPayload{Name: "Lamp", Description: "Warm light", Price: "12.50", Quantity: 0}, false},
		{"product missing description", &ProductPayload{Name: "Lamp", Price: "12.50", Quantity: 1}, true},
		{"product negative quantity", &ProductPayload{Name: "Lamp", Price: "1", Quantity: -1}, true},
		{"product missing name", &ProductPayload{Price: "1"}, true},
		{"course ok", &CoursePayload{Title: "Go", Description: "Basics", Price: "10", Duration: "6 weeks", Instructor: "Rob"}, false},
		{"course missing price", &CoursePayload{Title: "Go", Description: "Basics", Duration: "6 weeks", Instructor: "Rob"}, true},
		{"course missing description", &CoursePayload{Title: "Go", Price: "10", Duration: "6 weeks", Instructor: "Rob"}, true},
		{"course missing duration", &CoursePayload{Title: "Go", Description: "Basics", Price: "10", Instructor: "Rob"}, true},
		{"course missing instructor", &CoursePayload{Title: "Go", Description: "Basics", Price: "10", Duration: "6 weeks"}, true},
		{"cart ok", &AddToCartPayload{ProductID: "p1"}, false},
		{"cart missing product", &AddToCartPayload{}, true},
		{"wishlist ok", &WishlistTogglePayload{Kind: "course", ItemID: "c1", Return: "/courses"}, false},
		{"wishlist bad kind", &WishlistTogglePayload{Kind: "book", ItemID: "b1"}, true},
		{"wishlist external return", &WishlistTogglePayload{Kind: "product", ItemID: "p1", Return: "https://evil.example"}, true},
		{"quantity ok", &QuantityPayload{Quantity: 1}, false},
		{"quantity zero", &QuantityPayload{Quantity: 0}, true},
	}
	for _, tt := range tests {
		err := tt.payload.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidationErrorResponse(t *testing.T) {
	err := (&LoginPayload{Email: "nope"}).Validate()
	msg := ValidationErrorResponse(err).Error()
	if !strings.Contains(msg, "Field 'Email' is invalid: email") {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "Field 'Password' is invalid: required") {
		t.Errorf("unexpected message %q", msg)
	}
}
