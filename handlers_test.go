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

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prajit96/ecommerce-platform/inflight"
	"github.com/prajit96/ecommerce-platform/session"
	"github.com/prajit96/ecommerce-platform/shopapi"
)

type apiCall struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

// fakeAPI stands in for the shop REST API. Unrouted calls get a 404.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	routes map[string]http.HandlerFunc
}

func (f *fakeAPI) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	h := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	if h == nil {
		http.NotFound(w, r)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	h(w, r)
}

func (f *fakeAPI) callsTo(method, path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func statusReply(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		io.WriteString(w, body)
	}
}

func newTestServer(t *testing.T) (*frontendServer, http.Handler, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{routes: map[string]http.HandlerFunc{}}
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	log := logrus.New()
	log.Out = io.Discard
	fe := &frontendServer{
		shopAPIAddr: ts.URL + "/api",
		api:         shopapi.NewClient(ts.URL+"/api", ts.Client(), nil),
		sessions: session.NewManager(session.NewMemoryStore(time.Hour), cookieSession,
			[]byte("0123456789abcdef0123456789abcdef"), time.Hour),
		inflight: &inflight.Tracker{},
		log:      log,
	}
	return fe, fe.router(), api
}

// login starts a session holding token and returns its cookies.
func login(t *testing.T, fe *frontendServer, token string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := fe.sessions.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), token); err != nil {
		t.Fatalf("could not log in: %v", err)
	}
	return latestCookies(nil, rec)
}

// latestCookies merges the cookies set on rec over prev, keeping the last
// value written for each name.
func latestCookies(prev []*http.Cookie, rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	var order []string
	add := func(c *http.Cookie) {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	for _, c := range prev {
		add(c)
	}
	for _, c := range rec.Result().Cookies() {
		add(c)
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		if c := byName[name]; c.MaxAge >= 0 {
			out = append(out, c)
		}
	}
	return out
}

func send(h http.Handler, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func TestGuardedRoutesRedirectToLogin(t *testing.T) {
	_, h, api := newTestServer(t)
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/products"},
		{http.MethodGet, "/products/new"},
		{http.MethodGet, "/products/p1/edit"},
		{http.MethodPost, "/products"},
		{http.MethodPost, "/products/p1/delete"},
		{http.MethodGet, "/courses"},
		{http.MethodPost, "/courses/c1"},
		{http.MethodGet, "/wishlist"},
		{http.MethodPost, "/wishlist/toggle"},
		{http.MethodPost, "/wishlist/w1/delete"},
		{http.MethodGet, "/cart"},
		{http.MethodPost, "/cart"},
		{http.MethodPost, "/cart/l1/decrement"},
		{http.MethodGet, "/checkout"},
		{http.MethodPost, "/checkout"},
	}
	for _, tt := range tests {
		rec := send(h, tt.method, tt.path, url.Values{}, nil)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Errorf("%s %s: expected redirect to /login, got %d %q", tt.method, tt.path, rec.Code, rec.Header().Get("Location"))
		}
	}
	if n := api.total(); n != 0 {
		t.Errorf("guarded views must not run, but %d API calls were made", n)
	}
}

func TestPublicRoutesRender(t *testing.T) {
	_, h, api := newTestServer(t)
	api.handle(http.MethodGet, "/api/products", jsonReply(`{"docs":[{"_id":"p1","name":"Lamp","price":12.5}]}`))

	for _, path := range []string{"/", "/login", "/signup", "/_healthz"} {
		if rec := send(h, http.MethodGet, path, nil, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
	rec := send(h, http.MethodGet, "/", nil, nil)
	if !strings.Contains(rec.Body.String(), "Lamp") || !strings.Contains(rec.Body.String(), "$12.50") {
		t.Errorf("expected the home page to list products, got %s", rec.Body.String())
	}
	if n := len(api.callsTo(http.MethodGet, "/api/wishlist")); n != 0 {
		t.Errorf("the wishlist must not be fetched without a session, got %d calls", n)
	}
}

func TestLoginStoresTokenAndRedirects(t *testing.T) {
	fe, h, api := newTestServer(t)
	api.handle(http.MethodPost, "/api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.com" || body["password"] != "x" {
			statusReply(http.StatusUnauthorized, `{"message":"Invalid credentials"}`)(w, r)
			return
		}
		jsonReply(`{"token":"t1"}`)(w, r)
	})
	api.handle(http.MethodGet, "/api/products", jsonReply(`{"docs":[]}`))
	api.handle(http.MethodGet, "/api/wishlist", jsonReply(`{"items":[]}`))

	rec := send(h, http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"x"}}, nil)
	expectRedirect(t, rec, "/products")
	cookies := latestCookies(nil, rec)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	s, err := fe.sessions.Load(req)
	if err != nil {
		t.Fatal(err)
	}
	if s.Token != "t1" {
		t.Fatalf("expected token t1 in the session, got %q", s.Token)
	}

	page := send(h, http.MethodGet, "/products", nil, cookies)
	if page.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), "Login Successful") {
		t.Error("expected the login notice on the next page")
	}
	calls := api.callsTo(http.MethodGet, "/api/products")
	if len(calls) != 1 || calls[0].Auth != "Bearer t1" {
		t.Errorf("expected one products call with the bearer token, got %+v", calls)
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	_, h, api := newTestServer(t)
	api.handle(http.MethodPost, "/api/users/login", statusReply(http.StatusUnauthorized, `{"message":"Invalid credentials"}`))

	rec := send(h, http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Errorf("expected the server's message on the page, got %s", rec.Body.String())
	}
	if len(latestCookies(nil, rec)) != 0 {
		t.Error("a failed login must not start a session")
	}
}

func TestLoginValidation(t *testing.T) {
	_, h, api := newTestServer(t)
	rec := send(h, http.MethodPost, "/login", url.Values{"email": {"not-an-email"}}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if api.total() != 0 {
		t.Error("an invalid form must not reach the API")
	}
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		notice string
	}{
		{"new user", `{"message":"User created"}`, "Signup Successful"},
		{"existing user", `{"message":"User already exists"}`, "User Already Registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h, api := newTestServer(t)
			api.handle(http.MethodPost, "/api/users", jsonReply(tt.reply))

			rec := send(h, http.MethodPost, "/signup", url.Values{
				"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret1"},
			}, nil)
			expectRedirect(t, rec, "/login")

			page := send(h, http.MethodGet, "/login", nil, latestCookies(nil, rec))
			if !strings.Contains(page.Body.String(), tt.notice) {
				t.Errorf("expected notice %q on the login page", tt.notice)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	fe, h, _ := newTestServer(t)
	cookies := login(t, fe, "t1")

	rec := send(h, http.MethodGet, "/logout", nil, cookies)
	expectRedirect(t, rec, "/")

	after := send(h, http.MethodGet, "/cart", nil, latestCookies(cookies, rec))
	expectRedirect(t, after, "/login")
}

func TestWishlistAddIssuesOneCall(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")

	var mu sync.Mutex
	items := `[]`
	api.handle(http.MethodGet, "/api/wishlist", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		jsonReply(`{"items":` + items + `}`)(w, r)
	})
	api.handle(http.MethodPost, "/api/wishlist", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		items = `[{"_id":"w1","product":{"_id":"p1","name":"Lamp","description":"Warm light"}}]`
		mu.Unlock()
		jsonReply(`{}`)(w, r)
	})

	rec := send(h, http.MethodPost, "/wishlist/toggle", url.Values{
		"kind": {"product"}, "item_id": {"p1"}, "item_name": {"Lamp"}, "return": {"/products"},
	}, cookies)
	expectRedirect(t, rec, "/products")

	posts := api.callsTo(http.MethodPost, "/api/wishlist")
	if len(posts) != 1 {
		t.Fatalf("expected exactly one add call, got %d", len(posts))
	}
	if posts[0].Body != `{"productId":"p1"}` {
		t.Errorf("unexpected add body %s", posts[0].Body)
	}
	if n := len(api.callsTo(http.MethodDelete, "/api/wishlist/p1")); n != 0 {
		t.Errorf("expected no remove calls, got %d", n)
	}

	page := send(h, http.MethodGet, "/wishlist", nil, latestCookies(cookies, rec))
	body := page.Body.String()
	if !strings.Contains(body, "Lamp") || !strings.Contains(body, "Warm light") {
		t.Errorf("expected the wishlist page to show p1, got %s", body)
	}
	if !strings.Contains(body, "Lamp has been added to your wishlist.") {
		t.Error("expected the toggle notice on the next page")
	}
}

func TestWishlistToggleTwiceRestoresMembership(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")

	var mu sync.Mutex
	member := false
	api.handle(http.MethodGet, "/api/wishlist", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if member {
			jsonReply(`{"items":[{"_id":"w1","course":"c1"}]}`)(w, r)
			return
		}
		jsonReply(`{"items":[]}`)(w, r)
	})
	api.handle(http.MethodPost, "/api/wishlist", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		member = true
		mu.Unlock()
	})
	api.handle(http.MethodDelete, "/api/wishlist/c1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		member = false
		mu.Unlock()
	})

	form := url.Values{"kind": {"course"}, "item_id": {"c1"}, "item_name": {"Go"}, "return": {"/courses"}}
	for i := 0; i < 2; i++ {
		expectRedirect(t, send(h, http.MethodPost, "/wishlist/toggle", form, cookies), "/courses")
	}

	if posts := api.callsTo(http.MethodPost, "/api/wishlist"); len(posts) != 1 || posts[0].Body != `{"courseId":"c1"}` {
		t.Errorf("expected one add for c1, got %+v", posts)
	}
	if n := len(api.callsTo(http.MethodDelete, "/api/wishlist/c1")); n != 1 {
		t.Errorf("expected one remove for c1, got %d", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if member {
		t.Error("expected c1 to be out of the wishlist after two toggles")
	}
}

func TestWishlistToggleFailureShowsMessage(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodGet, "/api/wishlist", jsonReply(`{"items":[]}`))
	api.handle(http.MethodPost, "/api/wishlist", statusReply(http.StatusInternalServerError, `{"message":"boom"}`))

	rec := send(h, http.MethodPost, "/wishlist/toggle", url.Values{
		"kind": {"product"}, "item_id": {"p1"}, "return": {"https://evil.example"},
	}, cookies)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected an external return path to be rejected, got %d", rec.Code)
	}

	rec = send(h, http.MethodPost, "/wishlist/toggle", url.Values{"kind": {"product"}, "item_id": {"p1"}}, cookies)
	expectRedirect(t, rec, "/products")
	if n := len(api.callsTo(http.MethodPost, "/api/wishlist")); n != 1 {
		t.Errorf("expected a single add attempt, got %d", n)
	}

	api.handle(http.MethodGet, "/api/products", jsonReply(`{"docs":[]}`))
	page := send(h, http.MethodGet, "/products", nil, latestCookies(cookies, rec))
	if !strings.Contains(page.Body.String(), shopapi.UserMessage(&shopapi.Error{Kind: shopapi.KindServer})) {
		t.Errorf("expected the server error message, got %s", page.Body.String())
	}
	if strings.Contains(page.Body.String(), "already in your wishlist") {
		t.Error("a server failure must not be reported as a duplicate")
	}
}

const cartWithOneLamp = `{"items":[{"_id":"l1","product":{"_id":"p1","name":"Lamp","price":12.5},"quantity":1}]}`

func TestDecrementAtOneSendsNoUpdate(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodGet, "/api/cart", jsonReply(cartWithOneLamp))

	rec := send(h, http.MethodPost, "/cart/l1/decrement", url.Values{}, cookies)
	expectRedirect(t, rec, "/cart")
	if n := len(api.callsTo(http.MethodPut, "/api/cart/l1")); n != 0 {
		t.Errorf("expected no update call at quantity 1, got %d", n)
	}
}

func TestIncrementSendsAbsoluteQuantity(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodGet, "/api/cart", jsonReply(cartWithOneLamp))
	api.handle(http.MethodPut, "/api/cart/l1", jsonReply(`{}`))

	rec := send(h, http.MethodPost, "/cart/l1/increment", url.Values{}, cookies)
	expectRedirect(t, rec, "/cart")
	puts := api.callsTo(http.MethodPut, "/api/cart/l1")
	if len(puts) != 1 || puts[0].Body != `{"quantity":2}` {
		t.Errorf("expected one update to quantity 2, got %+v", puts)
	}
}

func TestSetQuantityJSON(t *testing.T) {
	tests := []struct {
		name       string
		reply      http.HandlerFunc
		body       string
		wantStatus int
		wantQty    int
	}{
		{"acknowledged", jsonReply(`{}`), `{"quantity":3}`, http.StatusOK, 3},
		{"failed update keeps quantity", statusReply(http.StatusInternalServerError, `{}`), `{"quantity":3}`, http.StatusBadGateway, 1},
		{"below one", jsonReply(`{}`), `{"quantity":0}`, http.StatusUnprocessableEntity, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe, h, api := newTestServer(t)
			cookies := login(t, fe, "t1")
			api.handle(http.MethodGet, "/api/cart", jsonReply(cartWithOneLamp))
			api.handle(http.MethodPut, "/api/cart/l1", tt.reply)

			req := httptest.NewRequest(http.MethodPost, "/api/cart/l1/quantity", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			for _, c := range cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var resp quantityResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.ID != "l1" || resp.Quantity != tt.wantQty {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestSetQuantityRequiresSession(t *testing.T) {
	_, h, api := newTestServer(t)
	rec := send(h, http.MethodPost, "/api/cart/l1/quantity", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if api.total() != 0 {
		t.Error("expected no API calls without a session")
	}
}

func TestCartPage(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodGet, "/api/cart", jsonReply(`{"items":[
		{"_id":"l1","product":{"_id":"p1","name":"Lamp","price":12.5},"quantity":2},
		{"_id":"l2","product":{"_id":"p2","name":"Desk","price":"100.00"},"quantity":1}]}`))

	rec := send(h, http.MethodGet, "/cart", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{"Lamp", "Desk", "$25.00", "$125.00"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("expected %q on the cart page", want)
		}
	}
}

func TestCheckoutRendersOrderAndBill(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodPost, "/api/checkout", jsonReply(`{
		"order":{"_id":"o1","user":"u1","totalAmount":20,"paymentStatus":"pending",
			"items":[{"product":{"_id":"p1","name":"Lamp","price":10},"quantity":2}]},
		"bill":{"totalAmount":20,"taxes":1.6,"discounts":0,"finalAmount":21.6}}`))

	rec := send(h, http.MethodPost, "/checkout", url.Values{}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Your order has been placed successfully!", "Lamp", "$20.00", "$1.60", "$21.60", "pending"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on the checkout page", want)
		}
	}
	calls := api.callsTo(http.MethodPost, "/api/checkout")
	if len(calls) != 1 || calls[0].Body != `{}` {
		t.Errorf("expected one checkout call with an empty body, got %+v", calls)
	}

	expectRedirect(t, send(h, http.MethodGet, "/checkout", nil, cookies), "/cart")
	if n := len(api.callsTo(http.MethodPost, "/api/checkout")); n != 1 {
		t.Errorf("viewing /checkout must not finalize again, got %d calls", n)
	}
}

func TestCheckoutFailureIsNotRetried(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodPost, "/api/checkout", statusReply(http.StatusInternalServerError, `{"message":"payment gateway down"}`))

	rec := send(h, http.MethodPost, "/checkout", url.Values{}, cookies)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to fetch checkout details.") {
		t.Error("expected the checkout failure banner")
	}
	if n := len(api.callsTo(http.MethodPost, "/api/checkout")); n != 1 {
		t.Errorf("expected exactly one checkout call, got %d", n)
	}
}

func TestRejectedTokenEndsSession(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "expired")
	api.handle(http.MethodGet, "/api/cart", statusReply(http.StatusUnauthorized, `{"message":"jwt expired"}`))

	rec := send(h, http.MethodGet, "/cart", nil, cookies)
	expectRedirect(t, rec, "/login")

	next := latestCookies(cookies, rec)
	page := send(h, http.MethodGet, "/login", nil, next)
	if !strings.Contains(page.Body.String(), "Session Expired") {
		t.Error("expected the session expired notice on the login page")
	}
	expectRedirect(t, send(h, http.MethodGet, "/cart", nil, next), "/login")
}

func TestProductCreate(t *testing.T) {
	fe, h, api := newTestServer(t)
	cookies := login(t, fe, "t1")
	api.handle(http.MethodPost, "/api/products", jsonReply(`{}`))

	bad := send(h, http.MethodPost, "/products", url.Values{"name": {"Lamp"}, "price": {"1.999"}}, cookies)
	if bad.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an invalid price, got %d", bad.Code)
	}
	noDesc := send(h, http.MethodPost, "/products", url.Values{"name": {"Lamp"}, "price": {"12.50"}}, cookies)
	if noDesc.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a missing description, got %d", noDesc.Code)
	}
	if n := len(api.callsTo(http.MethodPost, "/api/products")); n != 0 {
		t.Fatalf("an invalid form must not reach the API, got %d calls", n)
	}

	rec := send(h, http.MethodPost, "/products", url.Values{
		"name": {"Lamp"}, "description": {"Warm light"}, "price": {"$12.50"}, "quantity": {"3"},
	}, cookies)
	expectRedirect(t, rec, "/products")
	calls := api.callsTo(http.MethodPost, "/api/products")
	if len(calls) != 1 {
		t.Fatalf("expected one create call, got %d", len(calls))
	}
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(calls[0].Body), &body); err != nil {
		t.Fatal(err)
	}
	if body["name"] != "Lamp" || body["quantity"] != float64(3) {
		t.Errorf("unexpected create body %s", calls[0].Body)
	}
	if price, ok := body["price"].(float64); !ok || price != 12.5 {
		t.Errorf("expected numeric price 12.5, got %#v", body["price"])
	}
}

func TestReturnPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/courses", "/courses"},
		{"", "/products"},
		{"//evil.example", "/products"},
		{"https://evil.example", "/products"},
		{"/cart\r\nX-Injected: 1", "/products"},
	}
	for _, tt := range tests {
		if got := returnPath(tt.in, "/products"); got != tt.want {
			t.Errorf("returnPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
