// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"fmt"
	"sync"
)

// Outcome is the final state of a single delivery
type Outcome int

const (
	// Delivered means the broker acknowledged the record
	Delivered Outcome = iota

	// Rejected means the broker refused the record.  This is permanent for that record.
	Rejected

	// Cancelled means the send was abandoned before the broker answered, e.g. at client shutdown
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes how a delivery resolved.  The original key and payload are retained
// so that failures can be reported with the record that was lost.
type Result struct {
	Outcome Outcome
	Topic   string
	Key     []byte
	Payload []byte

	// Reason is the error that caused a Rejected or Cancelled outcome
	Reason error
}

// Pending is an outstanding delivery.  Done is closed once the delivery has resolved,
// after which Result returns the final state.
type Pending interface {
	Done() <-chan struct{}
	Result() Result
}

// Wait blocks until p resolves and returns its Result
func Wait(p Pending) Result {
	<-p.Done()
	return p.Result()
}

// Future is the Pending implementation used by brokers.  It resolves at most once.
type Future struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

var _ Pending = (*Future)(nil)

// NewFuture creates an unresolved Future
func NewFuture() *Future {
	return &Future{
		done: make(chan struct{}),
	}
}

// Resolved creates a Future that has already resolved to r
func Resolved(r Result) *Future {
	f := NewFuture()
	f.Resolve(r)
	return f
}

// Resolve completes this Future.  Only the first call has any effect, and this method
// returns true if this call resolved the Future.
func (f *Future) Resolve(r Result) (resolved bool) {
	f.once.Do(func() {
		f.result = r
		close(f.done)
		resolved = true
	})

	return
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until this Future is resolved
func (f *Future) Result() Result {
	<-f.done
	return f.result
}

// Reporter is the sink for delivery outcomes
type Reporter interface {
	Report(Result)
}

// ReporterFunc is a function type that implements Reporter
type ReporterFunc func(Result)

func (rf ReporterFunc) Report(r Result) {
	rf(r)
}

type nopReporter struct{}

func (nopReporter) Report(Result) {}
