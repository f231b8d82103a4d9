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
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on
// restart and are not shared between replicas. Expired sessions are
// dropped on Get, and Save sweeps the whole map at most once per ttl.
type MemoryStore struct {
	mu        sync.RWMutex
	ttl       time.Duration
	sessions  map[string]memoryEntry
	lastSweep time.Time
	now       func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore returns a store whose sessions expire ttl after their
// last save. A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	s := e.session
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	now := m.now()
	e := memoryEntry{session: *s}
	if m.ttl > 0 {
		e.expiresAt = now.Add(m.ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl > 0 && now.Sub(m.lastSweep) >= m.ttl {
		m.sweep(now)
	}
	m.sessions[s.ID] = e
	return nil
}

// sweep drops every expired session. m.mu must be held.
func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.sessions {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.sessions, id)
		}
	}
	m.lastSweep = now
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
