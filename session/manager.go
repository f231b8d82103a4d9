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

package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
)

const sessionIDKey = "sid"

// Manager ties the session cookie to the Store.
type Manager struct {
	cookies    *sessions.CookieStore
	store      Store
	cookieName string
	now        func() time.Time
}

// NewManager returns a manager that signs its cookie named cookieName with
// secret and keeps sessions in store. maxAge bounds the cookie lifetime.
func NewManager(store Store, cookieName string, secret []byte, maxAge time.Duration) *Manager {
	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{
		cookies:    cookies,
		store:      store,
		cookieName: cookieName,
		now:        time.Now,
	}
}

// Load returns the request's session. A request without a valid session
// cookie, or whose session is gone from the store, gets an anonymous
// session with no id and no token.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cs, _ := m.cookies.Get(r, m.cookieName)
	id, _ := cs.Values[sessionIDKey].(string)
	if id == "" {
		return &Session{}, nil
	}
	s, err := m.store.Get(r.Context(), id)
	if err == ErrNotFound {
		return &Session{}, nil
	}
	if err != nil {
		return &Session{}, errors.Wrap(err, "could not load session")
	}
	return s, nil
}

// Login starts a new session holding token, replacing any previous one.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, token string) (*Session, error) {
	cs, _ := m.cookies.Get(r, m.cookieName)
	if old, _ := cs.Values[sessionIDKey].(string); old != "" {
		if err := m.store.Delete(r.Context(), old); err != nil {
			return nil, errors.Wrap(err, "could not drop previous session")
		}
	}

	s := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserInfo:  UserInfoFromToken(token),
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, errors.Wrap(err, "could not save session")
	}
	cs.Values[sessionIDKey] = s.ID
	if err := cs.Save(r, w); err != nil {
		return nil, errors.Wrap(err, "could not write session cookie")
	}
	return s, nil
}

// Logout ends the request's session. Pending notices survive.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	cs, _ := m.cookies.Get(r, m.cookieName)
	if id, _ := cs.Values[sessionIDKey].(string); id != "" {
		if err := m.store.Delete(r.Context(), id); err != nil {
			return errors.Wrap(err, "could not delete session")
		}
	}
	delete(cs.Values, sessionIDKey)
	return errors.Wrap(cs.Save(r, w), "could not write session cookie")
}

// AddNotice queues n for the next page the browser renders.
func (m *Manager) AddNotice(w http.ResponseWriter, r *http.Request, n Notice) error {
	cs, _ := m.cookies.Get(r, m.cookieName)
	cs.AddFlash(n)
	return errors.Wrap(cs.Save(r, w), "could not write session cookie")
}

// Notices returns and clears the queued notices. It must be called before
// the response body is written.
func (m *Manager) Notices(w http.ResponseWriter, r *http.Request) []Notice {
	cs, _ := m.cookies.Get(r, m.cookieName)
	flashes := cs.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	out := make([]Notice, 0, len(flashes))
	for _, f := range flashes {
		if n, ok := f.(Notice); ok {
			out = append(out, n)
		}
	}
	_ = cs.Save(r, w)
	return out
}
