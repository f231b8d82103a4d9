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

// Package shopapi is a client for the storefront REST API.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prajit96/ecommerce-platform/telemetry"
)

const (
	userExistsMessage = "User already exists"
	maxErrorBody      = 4 << 10
)

// Client calls the storefront REST API. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *Breaker
}

// NewClient returns a client for the API rooted at baseURL, e.g.
// "https://shop.example.com/api". breaker may be nil.
func NewClient(baseURL string, httpClient *http.Client, breaker *Breaker) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
	}
}

// Signup calls POST /users.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	var resp messageResponse
	if err := c.do(ctx, "signup", http.MethodPost, "/users", "", req, &resp); err != nil {
		return nil, err
	}
	return &SignupResult{
		Message:       resp.Message,
		AlreadyExists: resp.Message == userExistsMessage,
	}, nil
}

// Login calls POST /users/login and returns the bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, "login", http.MethodPost, "/users/login", "", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{Op: "login", Kind: KindServer, Message: "response carried no token"}
	}
	return resp.Token, nil
}

// ListProducts calls GET /products.
func (c *Client) ListProducts(ctx context.Context, token string) ([]*Product, error) {
	var resp docsResponse[*Product]
	if err := c.do(ctx, "list_products", http.MethodGet, "/products", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Docs, nil
}

// GetProduct calls GET /products/:id.
func (c *Client) GetProduct(ctx context.Context, token, id string) (*Product, error) {
	var p Product
	if err := c.do(ctx, "get_product", http.MethodGet, "/products/"+url.PathEscape(id), token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct calls POST /products.
func (c *Client) CreateProduct(ctx context.Context, token string, in ProductInput) error {
	return c.do(ctx, "create_product", http.MethodPost, "/products", token, in, nil)
}

// UpdateProduct calls PUT /products/:id.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, in ProductInput) error {
	return c.do(ctx, "update_product", http.MethodPut, "/products/"+url.PathEscape(id), token, in, nil)
}

// DeleteProduct calls DELETE /products/:id.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete_product", http.MethodDelete, "/products/"+url.PathEscape(id), token, nil, nil)
}

// ListCourses calls GET /courses.
func (c *Client) ListCourses(ctx context.Context, token string) ([]*Course, error) {
	var resp docsResponse[*Course]
	if err := c.do(ctx, "list_courses", http.MethodGet, "/courses", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Docs, nil
}

// GetCourse calls GET /courses/:id.
func (c *Client) GetCourse(ctx context.Context, token, id string) (*Course, error) {
	var course Course
	if err := c.do(ctx, "get_course", http.MethodGet, "/courses/"+url.PathEscape(id), token, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse calls POST /courses.
func (c *Client) CreateCourse(ctx context.Context, token string, in CourseInput) error {
	return c.do(ctx, "create_course", http.MethodPost, "/courses", token, in, nil)
}

// UpdateCourse calls PUT /courses/:id.
func (c *Client) UpdateCourse(ctx context.Context, token, id string, in CourseInput) error {
	return c.do(ctx, "update_course", http.MethodPut, "/courses/"+url.PathEscape(id), token, in, nil)
}

// DeleteCourse calls DELETE /courses/:id.
func (c *Client) DeleteCourse(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete_course", http.MethodDelete, "/courses/"+url.PathEscape(id), token, nil, nil)
}

// ListWishlist calls GET /wishlist.
func (c *Client) ListWishlist(ctx context.Context, token string) ([]*WishlistEntry, error) {
	var resp itemsResponse[*WishlistEntry]
	if err := c.do(ctx, "list_wishlist", http.MethodGet, "/wishlist", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddToWishlist calls POST /wishlist with {productId} or {courseId}.
func (c *Client) AddToWishlist(ctx context.Context, token string, item ItemRef) error {
	body := map[string]string{"productId": item.ID}
	if item.Kind == KindCourse {
		body = map[string]string{"courseId": item.ID}
	}
	return c.do(ctx, "add_wishlist", http.MethodPost, "/wishlist", token, body, nil)
}

// RemoveFromWishlist calls DELETE /wishlist/:id.
func (c *Client) RemoveFromWishlist(ctx context.Context, token, id string) error {
	return c.do(ctx, "remove_wishlist", http.MethodDelete, "/wishlist/"+url.PathEscape(id), token, nil, nil)
}

// ListCart calls GET /cart.
func (c *Client) ListCart(ctx context.Context, token string) ([]*CartLine, error) {
	var resp itemsResponse[*CartLine]
	if err := c.do(ctx, "list_cart", http.MethodGet, "/cart", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// AddToCart calls POST /cart with {productId}.
func (c *Client) AddToCart(ctx context.Context, token, productID string) error {
	return c.do(ctx, "add_cart", http.MethodPost, "/cart", token, map[string]string{"productId": productID}, nil)
}

// UpdateCartLine calls PUT /cart/:id with the new absolute quantity.
func (c *Client) UpdateCartLine(ctx context.Context, token, lineID string, quantity int) error {
	return c.do(ctx, "update_cart", http.MethodPut, "/cart/"+url.PathEscape(lineID), token, map[string]int{"quantity": quantity}, nil)
}

// RemoveCartLine calls DELETE /cart/:id.
func (c *Client) RemoveCartLine(ctx context.Context, token, lineID string) error {
	return c.do(ctx, "remove_cart", http.MethodDelete, "/cart/"+url.PathEscape(lineID), token, nil, nil)
}

// Checkout calls POST /checkout with an empty body.
func (c *Client) Checkout(ctx context.Context, token string) (*CheckoutResult, error) {
	var resp CheckoutResult
	if err := c.do(ctx, "checkout", http.MethodPost, "/checkout", token, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	start := time.Now()
	var (
		err error
		gen uint64
	)
	if c.breaker != nil {
		var berr error
		if gen, berr = c.breaker.Allow(); berr != nil {
			err = networkError(op, berr)
			telemetry.ObserveAPICall(op, KindNetwork.String(), time.Since(start))
			return err
		}
	}

	err = c.roundTrip(ctx, op, method, path, token, in, out)

	if c.breaker != nil {
		c.breaker.Record(gen, err)
	}
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	telemetry.ObserveAPICall(op, outcome, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Kind: KindValidation, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Kind: KindValidation, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Op:      op,
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(resp.Body),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return &Error{Op: op, Kind: KindServer, Status: resp.StatusCode, Message: "undecodable response", Err: err}
	}
	return nil
}

// errorMessage extracts the server's message from an error response,
// falling back to the raw body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var msg messageResponse
	if json.Unmarshal(raw, &msg) == nil {
		if msg.Message != "" {
			return msg.Message
		}
		if msg.Error != "" {
			return msg.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
