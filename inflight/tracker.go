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

// Package inflight sequences concurrent mutations of the same item so that
// only the response to the most recent request is applied.
package inflight

import "sync"

// Ticket identifies one request for a key.
type Ticket struct {
	Key string
	seq uint64
}

// Tracker hands out tickets per key. The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]uint64
	next   uint64
}

// Begin starts a request for key and supersedes any request still in
// flight for it.
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		t.latest = make(map[string]uint64)
	}
	t.next++
	t.latest[key] = t.next
	return Ticket{Key: key, seq: t.next}
}

// Done finishes the request and reports whether it is still the latest one
// for its key. Only the latest request's response should be applied.
func (t *Tracker) Done(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.latest[tk.Key]
	if !ok || cur != tk.seq {
		return false
	}
	delete(t.latest, tk.Key)
	return true
}

// Pending returns the number of keys with a request in flight.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latest)
}
