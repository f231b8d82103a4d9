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

// Package wishlist keeps a page-local mirror of the user's wishlist and
// applies membership toggles against the API.
package wishlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/prajit96/ecommerce-platform/inflight"
	"github.com/prajit96/ecommerce-platform/shopapi"
)

// ErrSuperseded is returned when a newer request for the same item was
// issued while this one was in flight. Its response has been dropped.
var ErrSuperseded = errors.New("wishlist: superseded by a newer request")

// Remote is the part of the API the wishlist needs.
type Remote interface {
	ListWishlist(ctx context.Context, token string) ([]*shopapi.WishlistEntry, error)
	AddToWishlist(ctx context.Context, token string, item shopapi.ItemRef) error
	RemoveFromWishlist(ctx context.Context, token, id string) error
}

// Result describes an applied toggle.
type Result struct {
	Added   bool
	Message string
}

// View mirrors the wishlist for one page. It has no authority: Refresh
// replaces it with whatever the server holds.
type View struct {
	remote  Remote
	token   string
	scope   string
	tracker *inflight.Tracker

	mu      sync.Mutex
	entries []*shopapi.WishlistEntry
	members map[string]bool
}

// NewView returns an empty view. scope namespaces the in-flight keys,
// typically the session id; tracker may be nil to disable sequencing.
func NewView(remote Remote, token, scope string, tracker *inflight.Tracker) *View {
	return &View{
		remote:  remote,
		token:   token,
		scope:   scope,
		tracker: tracker,
		members: make(map[string]bool),
	}
}

// Refresh replaces the local state with the server's wishlist.
func (v *View) Refresh(ctx context.Context) error {
	entries, err := v.remote.ListWishlist(ctx, v.token)
	if err != nil {
		return errors.Wrap(err, "could not retrieve wishlist")
	}
	members := make(map[string]bool, len(entries))
	for _, e := range entries {
		if item, ok := e.Item(); ok {
			members[item.ID] = true
		}
	}
	v.mu.Lock()
	v.entries = entries
	v.members = members
	v.mu.Unlock()
	return nil
}

// Has reports whether the catalog item id is wishlisted.
func (v *View) Has(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.members[id]
}

// Set returns a copy of the wishlisted item ids.
func (v *View) Set() map[string]bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]bool, len(v.members))
	for id := range v.members {
		out[id] = true
	}
	return out
}

// Entries returns the wishlist entries from the last Refresh, adjusted for
// removals applied since.
func (v *View) Entries() []*shopapi.WishlistEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*shopapi.WishlistEntry(nil), v.entries...)
}

// Toggle flips the membership of item. The local set changes immediately;
// if the API call fails the change is rolled back and the error returned.
// Exactly one API call is made.
func (v *View) Toggle(ctx context.Context, item shopapi.ItemRef, name string) (Result, error) {
	v.mu.Lock()
	was := v.members[item.ID]
	v.setMember(item.ID, !was)
	v.mu.Unlock()

	tk, sequenced := v.begin("item:" + item.ID)

	var err error
	if was {
		err = v.remote.RemoveFromWishlist(ctx, v.token, item.ID)
	} else {
		err = v.remote.AddToWishlist(ctx, v.token, item)
	}

	if sequenced && !v.tracker.Done(tk) {
		return Result{}, ErrSuperseded
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.setMember(item.ID, was)
		return Result{}, errors.Wrapf(err, "could not toggle wishlist item %s", item.ID)
	}
	if was {
		v.dropItem(item.ID)
		return Result{Added: false, Message: fmt.Sprintf("%s has been removed from your wishlist.", displayName(name))}, nil
	}
	entry := &shopapi.WishlistEntry{}
	ref := &shopapi.Ref{ID: item.ID, Name: name}
	if item.Kind == shopapi.KindCourse {
		entry.Course = ref
	} else {
		entry.Product = ref
	}
	v.entries = append(v.entries, entry)
	return Result{Added: true, Message: fmt.Sprintf("%s has been added to your wishlist.", displayName(name))}, nil
}

// Remove deletes a wishlist entry by its own id. Local state changes only
// once the API has acknowledged the removal.
func (v *View) Remove(ctx context.Context, entryID string) error {
	tk, sequenced := v.begin("entry:" + entryID)
	err := v.remote.RemoveFromWishlist(ctx, v.token, entryID)
	if sequenced && !v.tracker.Done(tk) {
		return ErrSuperseded
	}
	if err != nil {
		return errors.Wrapf(err, "could not remove wishlist entry %s", entryID)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.entries[:0]
	for _, e := range v.entries {
		if e.ID == entryID {
			if item, ok := e.Item(); ok {
				delete(v.members, item.ID)
			}
			continue
		}
		kept = append(kept, e)
	}
	v.entries = kept
	return nil
}

func (v *View) begin(key string) (inflight.Ticket, bool) {
	if v.tracker == nil {
		return inflight.Ticket{}, false
	}
	return v.tracker.Begin("wishlist:" + v.scope + ":" + key), true
}

// setMember must be called with v.mu held.
func (v *View) setMember(id string, member bool) {
	if member {
		v.members[id] = true
	} else {
		delete(v.members, id)
	}
}

// dropItem must be called with v.mu held.
func (v *View) dropItem(id string) {
	kept := v.entries[:0]
	for _, e := range v.entries {
		if item, ok := e.Item(); ok && item.ID == id {
			continue
		}
		kept = append(kept, e)
	}
	v.entries = kept
}

func displayName(name string) string {
	if name == "" {
		return "Item"
	}
	return name
}
