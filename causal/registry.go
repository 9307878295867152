// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"context"
	"sync"
	"sync/atomic"
)

// Registry maps each execution context to its current Clock.  The lock guards
// only the map itself and is never held while a clock bumps or encodes.
type Registry struct {
	lock    sync.Mutex
	clocks  map[ContextID]*Clock
	options []Option

	lastID uint64
}

// NewRegistry constructs an empty Registry.  The given options are applied to each
// root clock created through RegisterRoot.
func NewRegistry(o ...Option) *Registry {
	return &Registry{
		clocks:  make(map[ContextID]*Clock),
		options: append([]Option(nil), o...),
	}
}

// NewContextID issues a fresh identity.  Identities are never zero and never reissued
// by the same Registry.
func (r *Registry) NewContextID() ContextID {
	return ContextID(atomic.AddUint64(&r.lastID, 1))
}

// RegisterRoot creates a depth 1 Clock for the given context and registers it,
// replacing any existing entry.
func (r *Registry) RegisterRoot(id ContextID) *Clock {
	c := New(id, r.options...)
	r.Register(id, c)
	return c
}

// Register stamps c with the given identity and stores it, replacing any stale entry
// left by a previous context with the same identity.
func (r *Registry) Register(id ContextID, c *Clock) {
	if c == nil {
		panic("causal: a Clock is required")
	}

	c.attach(id)
	r.lock.Lock()
	r.clocks[id] = c
	r.lock.Unlock()
}

// Get returns the Clock registered for the given context.  If there is none, an
// *UnregisteredContextError is returned and the registry is not modified.
func (r *Registry) Get(id ContextID) (*Clock, error) {
	r.lock.Lock()
	c, ok := r.clocks[id]
	r.lock.Unlock()

	if !ok {
		return nil, &UnregisteredContextError{ContextID: id}
	}

	return c, nil
}

// Current returns the Clock for the ContextID carried by ctx
func (r *Registry) Current(ctx context.Context) (*Clock, error) {
	id, ok := ContextIDFrom(ctx)
	if !ok {
		return nil, &UnregisteredContextError{}
	}

	return r.Get(id)
}

// ForkCurrent forks the Clock registered for the given context.  The child is returned
// unregistered; the child context registers it once it is running.
func (r *Registry) ForkCurrent(id ContextID) (*Clock, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	return c.Fork(), nil
}

// Release drops the entry for a context that has ended.  Releasing is optional.
// This method returns true if an entry was removed.
func (r *Registry) Release(id ContextID) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	_, ok := r.clocks[id]
	delete(r.clocks, id)
	return ok
}

// Len returns the number of registered contexts
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.clocks)
}
