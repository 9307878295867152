// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"sync"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
)

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithPendingGauge sets the gauge that mirrors the number of tracked deliveries.
// If g is nil, a discard gauge is used.
func WithPendingGauge(g metrics.Gauge) TrackerOption {
	return func(t *Tracker) {
		if g != nil {
			t.pending = g
		} else {
			t.pending = discard.NewGauge()
		}
	}
}

// Tracker holds the deliveries that have not yet been reconciled
type Tracker struct {
	lock    sync.Mutex
	handles []Pending
	pending metrics.Gauge
}

// NewTracker creates an empty Tracker
func NewTracker(o ...TrackerOption) *Tracker {
	t := &Tracker{
		pending: discard.NewGauge(),
	}

	for _, f := range o {
		f(t)
	}

	return t
}

// Track adds a pending delivery.  A nil handle is ignored.
func (t *Tracker) Track(p Pending) {
	if p == nil {
		return
	}

	t.lock.Lock()
	t.handles = append(t.handles, p)
	t.pending.Add(1.0)
	t.lock.Unlock()
}

// Len returns the number of deliveries that have not been drained
func (t *Tracker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.handles)
}

func (t *Tracker) pop() (Pending, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	last := len(t.handles) - 1
	if last < 0 {
		return nil, false
	}

	p := t.handles[last]
	t.handles[last] = nil
	t.handles = t.handles[:last]
	return p, true
}

// DrainAndResolve removes deliveries one at a time, most recent first, and blocks until
// each one resolves before reporting it.  The lock is never held while waiting, so new
// deliveries may be tracked concurrently and will be drained by this same call.
// This method returns the number of deliveries resolved.
func (t *Tracker) DrainAndResolve(r Reporter) int {
	if r == nil {
		r = nopReporter{}
	}

	count := 0
	for {
		p, ok := t.pop()
		if !ok {
			return count
		}

		result := Wait(p)
		t.pending.Add(-1.0)
		r.Report(result)
		count++
	}
}
