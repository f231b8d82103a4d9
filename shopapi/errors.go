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
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failed API call.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindUnauthorized
	KindNotFound
	KindConflict
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is returned by every Client call that does not succeed.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	switch {
	case e.Message != "":
		msg += ": " + e.Message
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	case e.Status == 0:
		msg += ": " + e.Kind.String()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindUnknown if err did not come from the API.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	}
	return KindServer
}

func networkError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNetwork, Err: err}
}

// UserMessage maps err to the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong. Please try again."
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "The store is unreachable right now. Check your connection and try again."
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindNotFound:
		return "That item no longer exists."
	case KindConflict:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "That change conflicts with the current state. Please refresh and check."
	case KindValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "The request was rejected as invalid."
	case KindServer:
		return "The store ran into a problem. Please try again later."
	}
	return "Something went wrong. Please try again."
}
