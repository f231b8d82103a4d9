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

package shopapi

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrBreakerOpen is returned, wrapped in a KindNetwork *Error, while the
// breaker is refusing calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker stops calls to the API after threshold consecutive transport or
// server failures, until timeout has passed. It then lets a single trial call
// through; its outcome closes or re-opens it. A Breaker never
// repeats a call.
//
// Every state change starts a new generation. Allow hands out the current
// generation and Record drops outcomes from an earlier one, so a slow call
// admitted before the breaker tripped cannot settle the trial call.
type Breaker struct {
	mu         sync.Mutex
	state      breakerState
	generation uint64
	failures   int
	openedAt   time.Time
	trialing   bool
	threshold  int
	timeout    time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewBreaker returns a closed breaker.
func NewBreaker(threshold int, timeout time.Duration, log logrus.FieldLogger) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
		log:       log,
	}
}

// Allow reports whether a call may proceed. The returned generation must be
// passed back to Record with the call's outcome.
func (b *Breaker) Allow() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.timeout {
			return b.generation, ErrBreakerOpen
		}
		b.setState(stateHalfOpen)
		b.trialing = true
	case stateHalfOpen:
		if b.trialing {
			return b.generation, ErrBreakerOpen
		}
		b.trialing = true
	}
	return b.generation, nil
}

// Record reports the outcome of a call that Allow let through in
// generation gen. Only failures that say something about the remote's
// health count.
func (b *Breaker) Record(gen uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}
	b.trialing = false
	if err == nil || !tripsBreaker(err) {
		b.failures = 0
		if b.state != stateClosed {
			b.setState(stateClosed)
		}
		return
	}
	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		b.setState(stateOpen)
	}
}

func (b *Breaker) setState(s breakerState) {
	if s == b.state {
		return
	}
	if b.log != nil {
		b.log.WithField("from", b.state.String()).WithField("to", s.String()).
			WithField("failures", b.failures).Warn("shop api circuit breaker state change")
	}
	b.state = s
	b.generation++
}

func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}
