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

// Package session holds the signed-in user's API token on the server. The
// Store is the only authority; the browser cookie carries nothing but the
// session id and one-shot notices.
package session

import (
	"context"
	"encoding/gob"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by a Store for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// UserInfo describes the signed-in user as far as the token tells.
type UserInfo struct {
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Session is created at login and deleted at logout.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserInfo  UserInfo  `json:"userInfo"`
	CreatedAt time.Time `json:"createdAt"`
}

// Authenticated reports whether the session holds a token. It does not
// check expiry or ask the API.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing notification shown on the next rendered page.
type Notice struct {
	Level Level
	Title string
	Text  string
}

func init() {
	gob.Register(Notice{})
}
