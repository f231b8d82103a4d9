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
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prajit96/ecommerce-platform/money"
	"github.com/prajit96/ecommerce-platform/session"
	"github.com/prajit96/ecommerce-platform/shopapi"
	"github.com/prajit96/ecommerce-platform/validator"
)

// productsHandler renders the product catalog (GET /products).
func (fe *frontendServer) productsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	products, err := fe.api.ListProducts(r.Context(), currentSession(r).Token)
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve products")
		fe.renderPage(w, r, httpStatusFor(err), "products", map[string]interface{}{
			"load_error": shopapi.UserMessage(err),
		})
		return
	}
	log.WithField("count", len(products)).Debug("products")
	fe.renderPage(w, r, http.StatusOK, "products", map[string]interface{}{
		"products": products,
		"wishlist": fe.wishlistSet(r),
	})
}

func (fe *frontendServer) newProductHandler(w http.ResponseWriter, r *http.Request) {
	fe.renderPage(w, r, http.StatusOK, "product_form", map[string]interface{}{
		"form":   validator.ProductPayload{},
		"action": baseUrl + "/products",
	})
}

func (fe *frontendServer) editProductHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]
	p, err := fe.api.GetProduct(r.Context(), currentSession(r).Token, id)
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		renderHTTPError(log, r, w, errors.Wrapf(err, "could not retrieve product %s", id), httpStatusFor(err))
		return
	}
	fe.renderPage(w, r, http.StatusOK, "product_form", map[string]interface{}{
		"form": validator.ProductPayload{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			Quantity:    int64(p.Quantity),
		},
		"action":  baseUrl + "/products/" + id,
		"editing": true,
	})
}

func (fe *frontendServer) createProductHandler(w http.ResponseWriter, r *http.Request) {
	fe.saveProduct(w, r, "")
}

func (fe *frontendServer) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	fe.saveProduct(w, r, mux.Vars(r)["id"])
}

// saveProduct creates a product, or updates the product id when id is set.
func (fe *frontendServer) saveProduct(w http.ResponseWriter, r *http.Request, id string) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	action := baseUrl + "/products"
	if id != "" {
		action += "/" + id
	}

	payload, in, err := productFromForm(r)
	if err != nil {
		log.WithField("error", err).Debug("invalid product form")
		fe.renderPage(w, r, http.StatusUnprocessableEntity, "product_form", map[string]interface{}{
			"form":       payload,
			"action":     action,
			"editing":    id != "",
			"form_error": err.Error(),
		})
		return
	}

	token := currentSession(r).Token
	if id == "" {
		err = fe.api.CreateProduct(r.Context(), token, in)
	} else {
		err = fe.api.UpdateProduct(r.Context(), token, id, in)
	}
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not save product")
		fe.renderPage(w, r, httpStatusFor(err), "product_form", map[string]interface{}{
			"form":       payload,
			"action":     action,
			"editing":    id != "",
			"form_error": shopapi.UserMessage(err),
		})
		return
	}

	if id == "" {
		log.WithField("name", in.Name).Info("product created")
		fe.notify(w, r, session.LevelSuccess, "Product Saved", in.Name+" has been added.")
	} else {
		log.WithField("id", id).Info("product updated")
		fe.notify(w, r, session.LevelSuccess, "Product Saved", in.Name+" has been updated.")
	}
	redirect(w, baseUrl+"/products")
}

func (fe *frontendServer) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]
	if err := fe.api.DeleteProduct(r.Context(), currentSession(r).Token, id); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not delete product")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
	} else {
		log.WithField("id", id).Info("product deleted")
		fe.notify(w, r, session.LevelSuccess, "Product Deleted", "The product has been removed.")
	}
	redirect(w, baseUrl+"/products")
}

// coursesHandler renders the course catalog (GET /courses).
func (fe *frontendServer) coursesHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	courses, err := fe.api.ListCourses(r.Context(), currentSession(r).Token)
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not retrieve courses")
		fe.renderPage(w, r, httpStatusFor(err), "courses", map[string]interface{}{
			"load_error": shopapi.UserMessage(err),
		})
		return
	}
	log.WithField("count", len(courses)).Debug("courses")
	fe.renderPage(w, r, http.StatusOK, "courses", map[string]interface{}{
		"courses":  courses,
		"wishlist": fe.wishlistSet(r),
	})
}

func (fe *frontendServer) newCourseHandler(w http.ResponseWriter, r *http.Request) {
	fe.renderPage(w, r, http.StatusOK, "course_form", map[string]interface{}{
		"form":   validator.CoursePayload{},
		"action": baseUrl + "/courses",
	})
}

func (fe *frontendServer) editCourseHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]
	c, err := fe.api.GetCourse(r.Context(), currentSession(r).Token, id)
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		renderHTTPError(log, r, w, errors.Wrapf(err, "could not retrieve course %s", id), httpStatusFor(err))
		return
	}
	fe.renderPage(w, r, http.StatusOK, "course_form", map[string]interface{}{
		"form": validator.CoursePayload{
			Title:       c.Title,
			Description: c.Description,
			Price:       c.Price.StringFixed(2),
			Duration:    string(c.Duration),
			Instructor:  c.Instructor,
		},
		"action":  baseUrl + "/courses/" + id,
		"editing": true,
	})
}

func (fe *frontendServer) createCourseHandler(w http.ResponseWriter, r *http.Request) {
	fe.saveCourse(w, r, "")
}

func (fe *frontendServer) updateCourseHandler(w http.ResponseWriter, r *http.Request) {
	fe.saveCourse(w, r, mux.Vars(r)["id"])
}

func (fe *frontendServer) saveCourse(w http.ResponseWriter, r *http.Request, id string) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	action := baseUrl + "/courses"
	if id != "" {
		action += "/" + id
	}

	payload, in, err := courseFromForm(r)
	if err != nil {
		log.WithField("error", err).Debug("invalid course form")
		fe.renderPage(w, r, http.StatusUnprocessableEntity, "course_form", map[string]interface{}{
			"form":       payload,
			"action":     action,
			"editing":    id != "",
			"form_error": err.Error(),
		})
		return
	}

	token := currentSession(r).Token
	if id == "" {
		err = fe.api.CreateCourse(r.Context(), token, in)
	} else {
		err = fe.api.UpdateCourse(r.Context(), token, id, in)
	}
	if err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not save course")
		fe.renderPage(w, r, httpStatusFor(err), "course_form", map[string]interface{}{
			"form":       payload,
			"action":     action,
			"editing":    id != "",
			"form_error": shopapi.UserMessage(err),
		})
		return
	}

	log.WithFields(logrus.Fields{"id": id, "title": in.Title}).Info("course saved")
	fe.notify(w, r, session.LevelSuccess, "Course Saved", in.Title+" has been saved.")
	redirect(w, baseUrl+"/courses")
}

func (fe *frontendServer) deleteCourseHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]
	if err := fe.api.DeleteCourse(r.Context(), currentSession(r).Token, id); err != nil {
		if fe.sessionExpired(w, r, err) {
			return
		}
		log.WithField("error", err).Warn("could not delete course")
		fe.notify(w, r, session.LevelError, "Error", shopapi.UserMessage(err))
	} else {
		log.WithField("id", id).Info("course deleted")
		fe.notify(w, r, session.LevelSuccess, "Course Deleted", "The course has been removed.")
	}
	redirect(w, baseUrl+"/courses")
}

func productFromForm(r *http.Request) (validator.ProductPayload, shopapi.ProductInput, error) {
	payload := validator.ProductPayload{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       strings.TrimSpace(r.FormValue("price")),
	}
	if q := strings.TrimSpace(r.FormValue("quantity")); q != "" {
		n, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			return payload, shopapi.ProductInput{}, errors.New("quantity must be a whole number")
		}
		payload.Quantity = n
	}
	if err := payload.Validate(); err != nil {
		return payload, shopapi.ProductInput{}, validator.ValidationErrorResponse(err)
	}
	price, err := money.Parse(payload.Price)
	if err != nil {
		return payload, shopapi.ProductInput{}, errors.Wrap(err, "price")
	}
	return payload, shopapi.ProductInput{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       money.NewAmount(price),
		Quantity:    int(payload.Quantity),
	}, nil
}

func courseFromForm(r *http.Request) (validator.CoursePayload, shopapi.CourseInput, error) {
	payload := validator.CoursePayload{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Duration:    strings.TrimSpace(r.FormValue("duration")),
		Instructor:  strings.TrimSpace(r.FormValue("instructor")),
	}
	if err := payload.Validate(); err != nil {
		return payload, shopapi.CourseInput{}, validator.ValidationErrorResponse(err)
	}
	price, err := money.Parse(payload.Price)
	if err != nil {
		return payload, shopapi.CourseInput{}, errors.Wrap(err, "price")
	}
	return payload, shopapi.CourseInput{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       money.NewAmount(price),
		Duration:    payload.Duration,
		Instructor:  payload.Instructor,
	}, nil
}
