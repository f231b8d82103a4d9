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
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prajit96/ecommerce-platform/session"
	"github.com/prajit96/ecommerce-platform/shopapi"
	"github.com/prajit96/ecommerce-platform/validator"
)

// loginPageHandler renders the login page (GET /login).
func (fe *frontendServer) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	if currentSession(r).Authenticated() {
		redirect(w, baseUrl+"/products")
		return
	}
	fe.renderPage(w, r, http.StatusOK, "login", map[string]interface{}{})
}

// loginSubmitHandler handles the login form submission (POST /login).
func (fe *frontendServer) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.LoginPayload{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := payload.Validate(); err != nil {
		fe.renderPage(w, r, http.StatusUnprocessableEntity, "login", map[string]interface{}{
			"login_error": validator.ValidationErrorResponse(err).Error(),
			"email":       payload.Email,
		})
		return
	}

	token, err := fe.api.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.WithField("error", err).Warn("login failed")
		fe.renderPage(w, r, httpStatusFor(err), "login", map[string]interface{}{
			"login_error": loginErrorMessage(err),
			"email":       payload.Email,
		})
		return
	}

	s, err := fe.sessions.Login(w, r, token)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not start session"), http.StatusInternalServerError)
		return
	}
	log.WithFields(logrus.Fields{"session": s.ID, "user": s.UserInfo.UserID}).Info("user logged in successfully")

	fe.notify(w, r, session.LevelSuccess, "Login Successful", "You have been logged in.")
	redirect(w, baseUrl+"/products")
}

// loginErrorMessage is the text shown on the login page for a failed
// login. The server's own message is shown when it sent one.
func loginErrorMessage(err error) string {
	var apiErr *shopapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case shopapi.KindUnauthorized, shopapi.KindNotFound, shopapi.KindValidation:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return "Invalid email or password."
		}
	}
	return shopapi.UserMessage(err)
}

// signupPageHandler renders the signup page (GET /signup).
func (fe *frontendServer) signupPageHandler(w http.ResponseWriter, r *http.Request) {
	fe.renderPage(w, r, http.StatusOK, "signup", map[string]interface{}{})
}

// signupSubmitHandler handles the signup form submission (POST /signup).
func (fe *frontendServer) signupSubmitHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	payload := validator.SignupPayload{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := payload.Validate(); err != nil {
		fe.renderPage(w, r, http.StatusUnprocessableEntity, "signup", map[string]interface{}{
			"signup_error": validator.ValidationErrorResponse(err).Error(),
			"name":         payload.Name,
			"email":        payload.Email,
		})
		return
	}

	res, err := fe.api.Signup(r.Context(), shopapi.SignupRequest{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		log.WithField("error", err).Warn("signup failed")
		fe.renderPage(w, r, httpStatusFor(err), "signup", map[string]interface{}{
			"signup_error": shopapi.UserMessage(err),
			"name":         payload.Name,
			"email":        payload.Email,
		})
		return
	}

	if res.AlreadyExists {
		log.WithField("email", payload.Email).Info("signup for existing user")
		fe.notify(w, r, session.LevelWarning, "User Already Registered", "An account with this email already exists. Please log in.")
	} else {
		log.WithField("email", payload.Email).Info("user registered successfully")
		fe.notify(w, r, session.LevelSuccess, "Signup Successful", "Your account has been created. Please log in.")
	}
	redirect(w, baseUrl+"/login")
}

// logoutHandler ends the session and returns to the home page.
func (fe *frontendServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	log.Debug("logging out")
	if err := fe.sessions.Logout(w, r); err != nil {
		log.WithField("error", err).Warn("could not end session")
	}
	redirect(w, baseUrl+"/")
}
