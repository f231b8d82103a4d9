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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/prajit96/ecommerce-platform/cart"
	"github.com/prajit96/ecommerce-platform/money"
	"github.com/prajit96/ecommerce-platform/session"
	"github.com/prajit96/ecommerce-platform/shopapi"
	"github.com/prajit96/ecommerce-platform/validator"
	"github.com/prajit96/ecommerce-platform/wishlist"
)

var (
	templates = template.Must(template.New("").
			Funcs(template.FuncMap{
			"renderMoney": money.Render,
			"lineTotal":   money.LineTotal,
			"add":         func(a, b int) int { return a + b },
		}).ParseGlob("templates/*.html"))
)

func (fe *frontendServer) homeHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	log.Debug("home")

	products, err := fe.api.ListProducts(r.Context(), currentSession(r).Token)
	data := map[string]interface{}{
		"products": products,
		"wishlist": fe.wishlistSet(r),
	}
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve products")
		data["load_error"] = shopapi.UserMessage(err)
	}
	fe.renderPage(w, r, http.StatusOK, "home", data)
}

type wishlistItem struct {
	ID          string
	Kind        shopapi.ItemKind
	ItemID      string
	Title       string
	Description string
}

func (fe *frontendServer) wishlistHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	view := fe.wishlistView(r)
	if err := view.Refresh(r.Context()); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve wishlist")
		fe.renderPage(w, r, httpStatusFor(err), "wishlist", map[string]interface{}{
			"load_error": shopapi.UserMessage(err),
		})
		return
	}

	entries := view.Entries()
	items := make([]wishlistItem, 0, len(entries))
	for _, e := range entries {
		item, _ := e.Item()
		items = append(items, wishlistItem{
			ID:          e.ID,
			Kind:        item.Kind,
			ItemID:      item.ID,
			Title:       e.Title(),
			Description: e.Description(),
		})
	}
	log.WithField("items", len(items)).Debug("wishlist")
	fe.renderPage(w, r, http.StatusOK, "wishlist", map[string]interface{}{
		"items": items,
	})
}

func (fe *frontendServer) wishlistToggleHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.WishlistTogglePayload{
		Kind:     r.FormValue("kind"),
		ItemID:   r.FormValue("item_id"),
		ItemName: strings.TrimSpace(r.FormValue("item_name")),
		Return:   r.FormValue("return"),
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	back := returnPath(payload.Return, "/products")

	// The toggle direction comes from the server's wishlist, never from the form.
	view := fe.wishlistView(r)
	if err := view.Refresh(r.Context()); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve wishlist")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
		redirect(w, back)
		return
	}

	item := shopapi.ItemRef{Kind: shopapi.ItemKind(payload.Kind), ID: payload.ItemID}
	res, err := view.Toggle(r.Context(), item, payload.ItemName)
	switch {
	case errors.Is(err, wishlist.ErrSuperseded):
		log.WithField("item", item.ID).Debug("wishlist toggle superseded")
	case err != nil:
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not update wishlist")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
	default:
		log.WithFields(logrus.Fields{"item": item.ID, "added": res.Added}).Info("wishlist updated")
		fe.notify(w, r, session.LevelSuccess, "Wishlist Updated", res.Message)
	}
	redirect(w, back)
}

func (fe *frontendServer) wishlistRemoveHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]

	err := fe.wishlistView(r).Remove(r.Context(), id)
	switch {
	case errors.Is(err, wishlist.ErrSuperseded):
	case err != nil:
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not remove wishlist entry")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
	default:
		fe.notify(w, r, session.LevelSuccess, "Wishlist Updated", "Item removed from your wishlist.")
	}
	redirect(w, baseUrl+"/wishlist")
}

type cartItemView struct {
	Line  shopapi.CartLine
	Total decimal.Decimal
}

func (fe *frontendServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	view := fe.cartView(r)
	if err := view.Load(r.Context()); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve cart")
		fe.renderPage(w, r, httpStatusFor(err), "cart", map[string]interface{}{
			"load_error": shopapi.UserMessage(err),
		})
		return
	}

	lines := view.Lines()
	items := make([]cartItemView, len(lines))
	for i, l := range lines {
		items[i].Line = l
		if l.Product != nil {
			items[i].Total = money.LineTotal(l.Product.Price, l.Quantity)
		}
	}
	log.WithField("cart_size", view.Count()).Debug("view cart")
	fe.renderPage(w, r, http.StatusOK, "cart", map[string]interface{}{
		"items":     items,
		"cart_size": view.Count(),
		"subtotal":  view.Subtotal(),
	})
}

func (fe *frontendServer) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.AddToCartPayload{ProductID: r.FormValue("product_id")}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	back := returnPath(r.FormValue("return"), "/products")

	if err := fe.api.AddToCart(r.Context(), currentSession(r).Token, payload.ProductID); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not add to cart")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
		redirect(w, back)
		return
	}
	log.WithField("product", payload.ProductID).Info("added to cart")
	fe.notify(w, r, session.LevelSuccess, "Cart Updated", "Item has been added to your cart.")
	redirect(w, back)
}

func (fe *frontendServer) incrementCartLineHandler(w http.ResponseWriter, r *http.Request) {
	fe.changeCartLine(w, r, (*cart.View).Increment)
}

func (fe *frontendServer) decrementCartLineHandler(w http.ResponseWriter, r *http.Request) {
	fe.changeCartLine(w, r, (*cart.View).Decrement)
}

// changeCartLine loads the cart and applies change to the line named in
// the route, then sends the browser back to the cart.
func (fe *frontendServer) changeCartLine(w http.ResponseWriter, r *http.Request,
	change func(*cart.View, context.Context, string) (int, error)) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]

	view := fe.cartView(r)
	if err := view.Load(r.Context()); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve cart")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
		redirect(w, baseUrl+"/cart")
		return
	}

	quantity, err := change(view, r.Context(), id)
	switch {
	case errors.Is(err, cart.ErrMinimumQuantity), errors.Is(err, cart.ErrSuperseded):
		log.WithField("line", id).WithField("reason", err).Debug("quantity left unchanged")
	case errors.Is(err, cart.ErrLineNotFound):
		fe.notify(w, r, session.LevelWarning, "Cart Updated", "That item is no longer in your cart.")
	case err != nil:
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not update quantity")
		fe.notify(w, r, session.LevelError, "Failed to update quantity", shopapi.UserMessage(err))
	default:
		log.WithFields(logrus.Fields{"line": id, "quantity": quantity}).Info("quantity updated")
		fe.notify(w, r, session.LevelSuccess, "Cart Updated", "Quantity updated successfully.")
	}
	redirect(w, baseUrl+"/cart")
}

func (fe *frontendServer) removeCartLineHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]

	err := fe.cartView(r).Remove(r.Context(), id)
	switch {
	case errors.Is(err, cart.ErrSuperseded):
	case err != nil:
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not remove cart line")
		fe.notify(w, r, session.LevelError, "Failed to remove item", shopapi.UserMessage(err))
	default:
		fe.notify(w, r, session.LevelSuccess, "Cart Updated", "Item removed from cart.")
	}
	redirect(w, baseUrl+"/cart")
}

type quantityResponse struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Notice   string `json:"notice,omitempty"`
	Error    string `json:"error,omitempty"`
}

// setCartQuantityHandler is the JSON form of the quantity controls. It
// answers 401 instead of redirecting when there is no session.
func (fe *frontendServer) setCartQuantityHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]
	s := currentSession(r)
	if !s.Authenticated() {
		writeJSON(log, w, http.StatusUnauthorized, quantityResponse{ID: id, Error: "login required"})
		return
	}

	var payload validator.QuantityPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&payload); err != nil {
		writeJSON(log, w, http.StatusBadRequest, quantityResponse{ID: id, Error: "malformed request body"})
		return
	}
	if err := payload.Validate(); err != nil {
		writeJSON(log, w, http.StatusUnprocessableEntity, quantityResponse{ID: id, Error: validator.ValidationErrorResponse(err).Error()})
		return
	}

	view := fe.cartView(r)
	if err := view.Load(r.Context()); err != nil {
		fe.writeAPIError(log, w, r, id, 0, err)
		return
	}
	current, ok := view.Line(id)
	if !ok {
		writeJSON(log, w, http.StatusNotFound, quantityResponse{ID: id, Error: "no such cart line"})
		return
	}

	quantity, err := view.SetQuantity(r.Context(), id, int(payload.Quantity))
	switch {
	case errors.Is(err, cart.ErrSuperseded):
		writeJSON(log, w, http.StatusConflict, quantityResponse{ID: id, Quantity: quantity, Error: "superseded by a newer change"})
	case err != nil:
		fe.writeAPIError(log, w, r, id, current.Quantity, err)
	default:
		writeJSON(log, w, http.StatusOK, quantityResponse{ID: id, Quantity: quantity, Notice: "Quantity updated successfully."})
	}
}

func (fe *frontendServer) writeAPIError(log logrus.FieldLogger, w http.ResponseWriter, r *http.Request, id string, quantity int, err error) {
	if shopapi.KindOf(err) == shopapi.KindUnauthorized {
		if lerr := fe.sessions.Logout(w, r); lerr != nil {
			log.WithField("error", lerr).Warn("could not end session")
		}
	}
	log.WithField("error", err).Warn("cart api call failed")
	writeJSON(log, w, httpStatusFor(err), quantityResponse{ID: id, Quantity: quantity, Error: shopapi.UserMessage(err)})
}

// checkoutHandler finalizes the order. The call is made exactly once per
// submission and the server's order and bill are rendered as returned.
func (fe *frontendServer) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	log.Debug("placing order")

	res, err := fe.api.Checkout(r.Context(), currentSession(r).Token)
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("checkout failed")
		fe.renderPage(w, r, httpStatusFor(err), "checkout", map[string]interface{}{
			"checkout_error": "Failed to fetch checkout details. " + shopapi.UserMessage(err),
		})
		return
	}

	if res.Order != nil {
		log.WithFields(logrus.Fields{
			"order":          res.Order.ID,
			"payment_status": res.Order.PaymentStatus,
		}).Info("order placed")
	}
	fe.renderPage(w, r, http.StatusOK, "checkout", map[string]interface{}{
		"order":           res.Order,
		"bill":            res.Bill,
		"success_message": "Your order has been placed successfully!",
	})
}

func (fe *frontendServer) checkoutRedirectHandler(w http.ResponseWriter, r *http.Request) {
	redirect(w, baseUrl+"/cart")
}

func (fe *frontendServer) wishlistView(r *http.Request) *wishlist.View {
	s := currentSession(r)
	return wishlist.NewView(fe.api, s.Token, s.ID, fe.inflight)
}

func (fe *frontendServer) cartView(r *http.Request) *cart.View {
	s := currentSession(r)
	return cart.NewView(fe.api, s.Token, s.ID, fe.inflight)
}

// wishlistSet returns the wishlisted item ids for marking catalog pages.
// A failed lookup leaves every item unmarked.
func (fe *frontendServer) wishlistSet(r *http.Request) map[string]bool {
	if !currentSession(r).Authenticated() {
		return map[string]bool{}
	}
	view := fe.wishlistView(r)
	if err := view.Refresh(r.Context()); err != nil {
		log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
		log.WithField("error", err).Warn("could not retrieve wishlist")
		return map[string]bool{}
	}
	return view.Set()
}

// sessionExpired ends the session and redirects to the login page when the
// API rejected the session's token. It reports whether it did so.
func (fe *frontendServer) sessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if shopapi.KindOf(err) != shopapi.KindUnauthorized || !currentSession(r).Authenticated() {
		return false
	}
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	log.WithField("error", err).Info("token rejected, ending session")
	if lerr := fe.sessions.Logout(w, r); lerr != nil {
		log.WithField("error", lerr).Warn("could not end session")
	}
	fe.notify(w, r, session.LevelWarning, "Session Expired", shopapi.UserMessage(err))
	redirect(w, baseUrl+"/login")
	return true
}

func (fe *frontendServer) notify(w http.ResponseWriter, r *http.Request, level session.Level, title, text string) {
	if err := fe.sessions.AddNotice(w, r, session.Notice{Level: level, Title: title, Text: text}); err != nil {
		log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
		log.WithField("error", err).Warn("could not queue notice")
	}
}

// renderPage executes the named template with the common data and any
// queued notices. Notices are consumed before the body is written.
func (fe *frontendServer) renderPage(w http.ResponseWriter, r *http.Request, code int, name string, payload map[string]interface{}) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	data := injectCommonTemplateData(r, payload)
	data["notices"] = fe.sessions.Notices(w, r)
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Error(err)
	}
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	log.WithField("error", err).Error("request error")
	errMsg := fmt.Sprintf("%+v", err)

	w.WriteHeader(code)

	if templateErr := templates.ExecuteTemplate(w, "error", injectCommonTemplateData(r, map[string]interface{}{
		"error":       errMsg,
		"status_code": code,
		"status":      http.StatusText(code),
	})); templateErr != nil {
		log.Println(templateErr)
	}
}

func injectCommonTemplateData(r *http.Request, payload map[string]interface{}) map[string]interface{} {
	s := currentSession(r)
	data := map[string]interface{}{
		"session_id":  s.ID,
		"request_id":  r.Context().Value(ctxKeyRequestID{}),
		"currentYear": time.Now().Year(),
		"baseUrl":     baseUrl,
		"logged_in":   s.Authenticated(),
		"user":        s.UserInfo,
		"path":        r.URL.Path,
	}

	for k, v := range payload {
		data[k] = v
	}

	return data
}

func writeJSON(log logrus.FieldLogger, w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("error", err).Warn("could not write response")
	}
}

func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}

// returnPath turns a form's return field into a redirect target on this
// site, falling back to fallback for anything else.
func returnPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n") {
		p = fallback
	}
	return baseUrl + p
}

// httpStatusFor maps an API failure to the status of the page reporting it.
func httpStatusFor(err error) int {
	switch shopapi.KindOf(err) {
	case shopapi.KindNetwork:
		return http.StatusServiceUnavailable
	case shopapi.KindUnauthorized:
		return http.StatusUnauthorized
	case shopapi.KindNotFound:
		return http.StatusNotFound
	case shopapi.KindConflict:
		return http.StatusConflict
	case shopapi.KindValidation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
