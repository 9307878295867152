// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Interface is the time source shared by causal clocks and the delivery flush loop.
// Tests substitute a clocktest.Mock to control both timestamps and ticks.
type Interface interface {
	Now() time.Time
	NewTicker(time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped.  The flush loop only ever selects on C
// and stops the ticker when it exits.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct {
	t *time.Ticker
}

func (wt wallTicker) C() <-chan time.Time { return wt.t.C }
func (wt wallTicker) Stop()               { wt.t.Stop() }

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) NewTicker(d time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(d)}
}

// System returns a clock backed by the time package
func System() Interface {
	return wallClock{}
}

// Micros converts a time into microseconds since the Unix epoch.  Times before
// the epoch are clamped to zero, as trace epochs are unsigned.
func Micros(t time.Time) uint64 {
	if us := t.UnixMicro(); us > 0 {
		return uint64(us)
	}

	return 0
}
