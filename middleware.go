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
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prajit96/ecommerce-platform/session"
)

type ctxKeyLog struct{}
type ctxKeyRequestID struct{}
type ctxKeySession struct{}

type logHandler struct {
	log  logrus.FieldLogger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := uuid.NewRandom()
	ctx = context.WithValue(ctx, ctxKeyRequestID{}, requestID.String())

	start := time.Now()
	rr := &responseRecorder{w: w}
	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID.String(),
	})
	if s := currentSession(r); s.ID != "" {
		log = log.WithField("session", s.ID)
	}
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.b}).Debugf("request complete")
	}()

	ctx = context.WithValue(ctx, ctxKeyLog{}, log)
	r = r.WithContext(ctx)
	lh.next.ServeHTTP(rr, r)
}

// loadSession resolves the session cookie against the session store and
// puts the result in the request context. Requests without a live session
// carry an anonymous one.
func (fe *frontendServer) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := fe.sessions.Load(r)
		if err != nil {
			fe.log.WithField("error", err).Warn("treating request as anonymous")
		}
		ctx := context.WithValue(r.Context(), ctxKeySession{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession sends visitors without a token to the login page before
// the wrapped handler runs.
func (fe *frontendServer) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !currentSession(r).Authenticated() {
			log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
			log.Debug("no session, redirecting to login")
			w.Header().Set("Location", baseUrl+"/login")
			w.WriteHeader(http.StatusFound)
			return
		}
		next(w, r)
	}
}

func currentSession(r *http.Request) *session.Session {
	if s, ok := r.Context().Value(ctxKeySession{}).(*session.Session); ok && s != nil {
		return s
	}
	return &session.Session{}
}
