// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"sync"

	"github.com/xmidt-org/causaltrace/clock"
)

// Option configures a Clock
type Option func(*Clock)

// WithClock sets the time source used for epochs.  If c is nil, this option does nothing.
func WithClock(c clock.Interface) Option {
	return func(cc *Clock) {
		if c != nil {
			cc.source = c
		}
	}
}

// WithFormat sets the encoding used for trace records produced by a Clock
func WithFormat(f Format) Option {
	return func(cc *Clock) {
		cc.format = f
	}
}

// Clock is the vector clock owned by a single execution context.  All methods
// are safe for concurrent use, though a context normally uses its clock sequentially.
//
// Forked clocks inherit the time source and format of their parent.
type Clock struct {
	lock      sync.Mutex
	contextID ContextID
	path      []uint64
	epoch     uint64

	source clock.Interface
	format Format
}

// New creates a root Clock of depth 1 for the given context.  The path is [0] until the first bump.
func New(id ContextID, o ...Option) *Clock {
	c := &Clock{
		contextID: id,
		path:      []uint64{0},
		source:    clock.System(),
		format:    JSON,
	}

	for _, option := range o {
		option(c)
	}

	c.epoch = clock.Micros(c.source.Now())
	return c
}

// ContextID returns the identity of the context that owns this clock.  A forked clock
// that has not been registered returns zero.
func (c *Clock) ContextID() ContextID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.contextID
}

// Format returns the encoding used for records produced by this clock
func (c *Clock) Format() Format {
	return c.format
}

// Stamp returns a snapshot of this clock without recording an event
func (c *Clock) Stamp() Stamp {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.stamp()
}

// Bump records an event: the local counter is incremented by exactly one and the epoch
// is refreshed.  The returned Stamp is the state after the bump.
func (c *Clock) Bump() Stamp {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.bump()
	return c.stamp()
}

// Fork records the fork event on this clock and returns a detached clock for a new
// context.  The child's path is this clock's post-bump path with a trailing zero,
// and its epoch is this clock's post-bump epoch.
//
// The returned clock must be registered under the child's own ContextID, from within the child.
func (c *Clock) Fork() *Clock {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.bump()

	path := make([]uint64, len(c.path), len(c.path)+1)
	copy(path, c.path)

	return &Clock{
		path:   append(path, 0),
		epoch:  c.epoch,
		source: c.source,
		format: c.format,
	}
}

// Record bumps this clock and encodes a trace record stamped with the post-bump state.
// The returned key is the human-readable form of that stamp.  If the body cannot be
// encoded, a *SerializationError is returned and no record is produced.
func (c *Clock) Record(level Level, code CodeAttributes, body interface{}) (key []byte, payload []byte, err error) {
	s := c.Bump()
	payload, err = c.format.Encode(&Record{
		Header: s,
		Level:  level.String(),
		Code:   code,
		Body:   body,
	})

	if err != nil {
		return nil, nil, &SerializationError{Stamp: s, Format: c.format, Err: err}
	}

	return []byte(s.String()), payload, nil
}

// Trace is shorthand for Record(Trace, code, body)
func (c *Clock) Trace(code CodeAttributes, body interface{}) ([]byte, []byte, error) {
	return c.Record(Trace, code, body)
}

// Debug is shorthand for Record(Debug, code, body)
func (c *Clock) Debug(code CodeAttributes, body interface{}) ([]byte, []byte, error) {
	return c.Record(Debug, code, body)
}

func (c *Clock) attach(id ContextID) {
	c.lock.Lock()
	c.contextID = id
	c.lock.Unlock()
}

// bump must be called under the lock
func (c *Clock) bump() {
	c.path[len(c.path)-1]++
	c.epoch = clock.Micros(c.source.Now())
}

// stamp must be called under the lock
func (c *Clock) stamp() Stamp {
	path := make([]uint64, len(c.path))
	copy(path, c.path)

	return Stamp{
		ContextID: c.contextID,
		Path:      path,
		Epoch:     c.epoch,
	}
}
