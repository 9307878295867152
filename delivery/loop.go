// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xmidt-org/causaltrace/clock"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// DefaultInterval is the time between drains of a running FlushLoop
const DefaultInterval = time.Second

// ErrAlreadyStarted is returned when Start is called on a FlushLoop that has already been started or stopped
var ErrAlreadyStarted = errors.New("the flush loop cannot be started more than once")

// State is the lifecycle state of a FlushLoop
type State uint32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// LoopOption configures a FlushLoop
type LoopOption func(*FlushLoop)

// WithInterval sets the time between drains.  Nonpositive values select DefaultInterval.
func WithInterval(d time.Duration) LoopOption {
	return func(fl *FlushLoop) {
		if d > 0 {
			fl.interval = d
		} else {
			fl.interval = DefaultInterval
		}
	}
}

// WithClock sets the source of ticks.  If c is nil, the system clock is used.
func WithClock(c clock.Interface) LoopOption {
	return func(fl *FlushLoop) {
		if c != nil {
			fl.clock = c
		} else {
			fl.clock = clock.System()
		}
	}
}

// WithLogger sets the logger that records every outcome.  If nil, the default logger is used instead.
func WithLogger(l *zap.Logger) LoopOption {
	return func(fl *FlushLoop) {
		if l != nil {
			fl.logger = l
		} else {
			fl.logger = sallust.Default()
		}
	}
}

// WithReporter sets an additional sink that receives every outcome after it is logged
func WithReporter(r Reporter) LoopOption {
	return func(fl *FlushLoop) {
		if r != nil {
			fl.reporter = r
		} else {
			fl.reporter = nopReporter{}
		}
	}
}

// WithMeasures sets the outcome counters.  Only the Delivered, Rejected, and Cancelled counters are used.
func WithMeasures(m Measures) LoopOption {
	return func(fl *FlushLoop) {
		fl.measures = m
	}
}

// FlushLoop is the background task that reconciles a Tracker.  While running, it drains
// the Tracker once per interval.  Stop performs one final drain before the loop exits.
type FlushLoop struct {
	tracker  *Tracker
	interval time.Duration
	clock    clock.Interface
	logger   *zap.Logger
	reporter Reporter
	measures Measures

	state    uint32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewFlushLoop creates an idle FlushLoop for the given Tracker
func NewFlushLoop(t *Tracker, o ...LoopOption) *FlushLoop {
	if t == nil {
		panic("A delivery.Tracker is required")
	}

	fl := &FlushLoop{
		tracker:  t,
		interval: DefaultInterval,
		clock:    clock.System(),
		logger:   sallust.Default(),
		reporter: nopReporter{},
		measures: DiscardMeasures(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, f := range o {
		f(fl)
	}

	return fl
}

// State returns the current lifecycle state
func (fl *FlushLoop) State() State {
	return State(atomic.LoadUint32(&fl.state))
}

// Stopped returns a channel that is closed once the final drain has completed
func (fl *FlushLoop) Stopped() <-chan struct{} {
	return fl.done
}

// Start spawns the loop goroutine
func (fl *FlushLoop) Start() error {
	if !atomic.CompareAndSwapUint32(&fl.state, uint32(Idle), uint32(Running)) {
		return ErrAlreadyStarted
	}

	ticker := fl.clock.NewTicker(fl.interval)
	fl.logger.Info("flush loop starting", zap.Duration("interval", fl.interval))
	go fl.run(ticker)
	return nil
}

// Stop signals the loop to exit and blocks until its final drain has completed.  After
// Stop returns, the Tracker is empty.  If the loop was never started, the final drain
// runs on the calling goroutine.  This method is idempotent.
func (fl *FlushLoop) Stop() {
	fl.stopOnce.Do(func() {
		close(fl.stop)
		if atomic.CompareAndSwapUint32(&fl.state, uint32(Idle), uint32(Stopped)) {
			resolved := fl.flush()
			fl.logger.Info("flush loop stopped without starting", zap.Int("resolved", resolved))
			close(fl.done)
		}
	})

	<-fl.done
}

func (fl *FlushLoop) run(ticker clock.Ticker) {
	defer close(fl.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			if resolved := fl.flush(); resolved > 0 {
				fl.logger.Debug("flushed pending deliveries", zap.Int("resolved", resolved))
			}

		case <-fl.stop:
			resolved := fl.flush()
			atomic.StoreUint32(&fl.state, uint32(Stopped))
			fl.logger.Info("flush loop stopped", zap.Int("resolved", resolved))
			return
		}
	}
}

func (fl *FlushLoop) flush() int {
	return fl.tracker.DrainAndResolve(ReporterFunc(fl.report))
}

func (fl *FlushLoop) report(r Result) {
	if c := fl.measures.outcome(r.Outcome); c != nil {
		c.Add(1.0)
	}

	fields := []zap.Field{zap.String("topic", r.Topic), zap.ByteString("key", r.Key)}
	switch r.Outcome {
	case Delivered:
		fl.logger.Debug("trace record delivered", fields...)
	case Rejected:
		fl.logger.Error("trace record rejected by broker",
			append(fields, zap.Error(r.Reason), zap.ByteString("payload", r.Payload))...)
	default:
		fl.logger.Warn("trace record delivery cancelled",
			append(fields, zap.Stringer("outcome", r.Outcome), zap.Error(r.Reason))...)
	}

	fl.reporter.Report(r)
}
