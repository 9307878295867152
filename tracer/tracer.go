// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/xmidt-org/causaltrace/causal"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/causaltrace/publisher"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// ErrClosed is returned by tracing operations once the Tracer has been closed
var ErrClosed = errors.New("the tracer has been closed")

// Option configures a Tracer
type Option func(*Tracer)

// WithLogger sets the logger used to report records dropped at the source.  If nil, the default logger is used instead.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracer) {
		if l != nil {
			t.logger = l
		} else {
			t.logger = sallust.Default()
		}
	}
}

// WithSerializationErrors sets the counter incremented whenever a record cannot be encoded
func WithSerializationErrors(c metrics.Counter) Option {
	return func(t *Tracer) {
		if c != nil {
			t.serializationErrors = c
		} else {
			t.serializationErrors = discard.NewCounter()
		}
	}
}

// WithCloser adds a resource, typically the broker, that is closed after the final drain
func WithCloser(c io.Closer) Option {
	return func(t *Tracer) {
		if c != nil {
			t.closers = append(t.closers, c)
		}
	}
}

// Tracer binds a clock Registry to the delivery pipeline.  Goroutines register a root
// clock or attach a forked one, then emit records that are published asynchronously.
type Tracer struct {
	registry            *causal.Registry
	publisher           *publisher.Publisher
	loop                *delivery.FlushLoop
	logger              *zap.Logger
	serializationErrors metrics.Counter
	closers             []io.Closer

	lock   sync.RWMutex
	closed bool
}

// New creates a Tracer.  The FlushLoop is owned by the Tracer from this point on: Close
// stops it.  Starting the loop remains the caller's responsibility.
func New(r *causal.Registry, p *publisher.Publisher, fl *delivery.FlushLoop, o ...Option) *Tracer {
	if r == nil || p == nil || fl == nil {
		panic("A registry, publisher, and flush loop are required")
	}

	t := &Tracer{
		registry:            r,
		publisher:           p,
		loop:                fl,
		logger:              sallust.Default(),
		serializationErrors: discard.NewCounter(),
	}

	for _, f := range o {
		f(t)
	}

	return t
}

// Registry returns the clock registry used by this Tracer
func (t *Tracer) Registry() *causal.Registry {
	return t.registry
}

// RegisterRoot issues a new identity, registers a root clock for it, and returns a
// context carrying that identity.  The returned context also carries a logger, available
// through sallust.Get, that is decorated with the identity.
func (t *Tracer) RegisterRoot(ctx context.Context) (context.Context, *causal.Clock) {
	id := t.registry.NewContextID()
	return t.withContextID(ctx, id), t.registry.RegisterRoot(id)
}

func (t *Tracer) withContextID(ctx context.Context, id causal.ContextID) context.Context {
	return sallust.With(
		causal.WithContextID(ctx, id),
		t.logger.With(zap.Stringer("contextID", id)),
	)
}

// ForkCurrent forks the clock of the context carried by ctx.  Call this from the parent
// before spawning the child, then Attach the result from within the child.  Once the
// Tracer is closed, the parent clock is left untouched and ErrClosed is returned.
func (t *Tracer) ForkCurrent(ctx context.Context) (*causal.Clock, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.closed {
		return nil, ErrClosed
	}

	c, err := t.registry.Current(ctx)
	if err != nil {
		return nil, err
	}

	return c.Fork(), nil
}

// Attach registers a forked clock under a new identity and returns a context carrying it.
// This must run inside the child.
func (t *Tracer) Attach(ctx context.Context, child *causal.Clock) (context.Context, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.closed {
		return ctx, ErrClosed
	}

	id := t.registry.NewContextID()
	t.registry.Register(id, child)
	return t.withContextID(ctx, id), nil
}

// Go forks the current clock and runs fn on a new goroutine with the child attached.
// The child's registry entry is released when fn returns.  If the Tracer is closed
// before the child attaches, fn still runs but every record it emits fails with ErrClosed.
func (t *Tracer) Go(ctx context.Context, fn func(context.Context)) error {
	child, err := t.ForkCurrent(ctx)
	if err != nil {
		return err
	}

	go func() {
		childCtx, err := t.Attach(ctx, child)
		if err != nil {
			fn(childCtx)
			return
		}

		defer t.registry.Release(child.ContextID())
		fn(childCtx)
	}()

	return nil
}

// Trace emits a Trace level record for the context carried by ctx
func (t *Tracer) Trace(ctx context.Context, code causal.CodeAttributes, body interface{}) ([]byte, []byte, error) {
	return t.emit(ctx, causal.Trace, code, body)
}

// Debug emits a Debug level record for the context carried by ctx
func (t *Tracer) Debug(ctx context.Context, code causal.CodeAttributes, body interface{}) ([]byte, []byte, error) {
	return t.emit(ctx, causal.Debug, code, body)
}

func (t *Tracer) emit(ctx context.Context, level causal.Level, code causal.CodeAttributes, body interface{}) ([]byte, []byte, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.closed {
		return nil, nil, ErrClosed
	}

	c, err := t.registry.Current(ctx)
	if err != nil {
		return nil, nil, err
	}

	key, payload, err := c.Record(level, code, body)
	if err != nil {
		var se *causal.SerializationError
		if errors.As(err, &se) {
			t.serializationErrors.Add(1.0)
		}

		t.logger.Error(
			"dropping trace record",
			zap.Stringer("level", level),
			zap.String("module", code.Module),
			zap.String("function", code.Function),
			zap.Uint32("line", code.LineNo),
			zap.Error(err),
		)

		return nil, nil, err
	}

	t.publisher.Publish(key, payload)
	return key, payload, nil
}

// Close stops accepting records, waits for the flush loop's final drain, and then closes
// any configured resources.  This method is idempotent.
func (t *Tracer) Close() error {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}

	t.closed = true
	t.lock.Unlock()

	t.loop.Stop()

	var errs []error
	for _, c := range t.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
