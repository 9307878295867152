// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/kit/metrics/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/causaltrace/causal"
	"github.com/xmidt-org/causaltrace/clock/clocktest"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/causaltrace/publisher"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap/zaptest"
)

type sent struct {
	topic   string
	key     []byte
	payload []byte
}

type recordingBroker struct {
	lock sync.Mutex
	sent []sent
}

func (rb *recordingBroker) Publish(topic string, key, payload []byte) delivery.Pending {
	rb.lock.Lock()
	rb.sent = append(rb.sent, sent{topic: topic, key: key, payload: payload})
	rb.lock.Unlock()

	return delivery.Resolved(delivery.Result{
		Outcome: delivery.Delivered,
		Topic:   topic,
		Key:     key,
		Payload: payload,
	})
}

func (rb *recordingBroker) Sent() []sent {
	rb.lock.Lock()
	defer rb.lock.Unlock()
	return append([]sent(nil), rb.sent...)
}

type closerFunc func() error

func (cf closerFunc) Close() error {
	return cf()
}

type testTracer struct {
	*Tracer
	broker    *recordingBroker
	tracker   *delivery.Tracker
	loop      *delivery.FlushLoop
	delivered *generic.Counter
}

func newTestTracer(t *testing.T, o ...Option) testTracer {
	var (
		broker   = new(recordingBroker)
		registry = causal.NewRegistry(
			causal.WithClock(clocktest.NewManual(time.Unix(1700000000, 0), time.Millisecond)),
		)

		tracker   = delivery.NewTracker()
		delivered = generic.NewCounter("delivered")
		measures  = delivery.DiscardMeasures()
	)

	measures.Delivered = delivered
	loop := delivery.NewFlushLoop(
		tracker,
		delivery.WithLogger(zaptest.NewLogger(t)),
		delivery.WithMeasures(measures),
	)

	pub := publisher.New(broker, tracker)
	return testTracer{
		Tracer:    New(registry, pub, loop, append([]Option{WithLogger(zaptest.NewLogger(t))}, o...)...),
		broker:    broker,
		tracker:   tracker,
		loop:      loop,
		delivered: delivered,
	}
}

func TestNew(t *testing.T) {
	assert := assert.New(t)
	assert.Panics(func() {
		New(nil, nil, nil)
	})

	tt := newTestTracer(t)
	assert.NotNil(tt.Registry())
}

func TestRegisterRootAndTrace(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		tt      = newTestTracer(t)
	)

	ctx, root := tt.RegisterRoot(context.Background())
	require.NotNil(root)

	id, ok := causal.ContextIDFrom(ctx)
	require.True(ok)
	assert.Equal(id, root.ContextID())
	assert.NotNil(sallust.Get(ctx))

	key, payload, err := tt.Trace(ctx, causal.Here("recv"), "msg1")
	require.NoError(err)
	assert.NotEmpty(key)
	assert.NotEmpty(payload)

	_, _, err = tt.Debug(ctx, causal.Here("recv"), "msg2")
	require.NoError(err)

	sent := tt.broker.Sent()
	require.Len(sent, 2)
	assert.Equal(publisher.DefaultTopic, sent[0].topic)
	assert.Equal(key, sent[0].key)
	assert.Equal(payload, sent[0].payload)

	var r causal.Record
	require.NoError(causal.JSON.Decode(sent[1].payload, &r))
	assert.Equal("Debug", r.Level)
	assert.Equal([]uint64{2}, r.Header.Path)
	assert.Equal(2, tt.tracker.Len())
}

func TestTraceUnregistered(t *testing.T) {
	var (
		assert = assert.New(t)
		tt     = newTestTracer(t)
	)

	_, _, err := tt.Trace(context.Background(), causal.Here("recv"), "orphan")
	assert.ErrorIs(err, causal.ErrUnregisteredContext)

	_, err = tt.ForkCurrent(causal.WithContextID(context.Background(), 99))
	assert.ErrorIs(err, causal.ErrUnregisteredContext)

	assert.ErrorIs(
		tt.Go(context.Background(), func(context.Context) {}),
		causal.ErrUnregisteredContext,
	)

	assert.Empty(tt.broker.Sent())
}

func TestTraceSerializationError(t *testing.T) {
	testData := []struct {
		name string
		body interface{}
	}{
		{"Func", func() {}},
		{"Chan", make(chan string)},
		{"Complex", complex(1, 2)},
		{"NaN", math.NaN()},
		{"Inf", math.Inf(1)},
		{"IntKeys", map[int]string{1: "one"}},
		{"ArrayKeys", map[[2]int]int{{1, 2}: 1}},
	}

	for _, record := range testData {
		t.Run(record.name, func(t *testing.T) {
			var (
				assert  = assert.New(t)
				require = require.New(t)
				counter = generic.NewCounter("serialization")
				tt      = newTestTracer(t, WithSerializationErrors(counter))
			)

			ctx, root := tt.RegisterRoot(context.Background())
			key, payload, err := tt.Trace(ctx, causal.Here("recv"), record.body)
			assert.Nil(key)
			assert.Nil(payload)

			var se *causal.SerializationError
			require.True(errors.As(err, &se))
			assert.ErrorIs(err, causal.ErrUnsupportedValue)
			assert.Equal(1.0, counter.Value())
			assert.Empty(tt.broker.Sent())
			assert.Equal(0, tt.tracker.Len())
			assert.Equal(uint64(1), root.Stamp().Counter())
		})
	}
}

func TestForkAndAttach(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		tt      = newTestTracer(t)
	)

	ctx, root := tt.RegisterRoot(context.Background())
	root.Bump()
	root.Bump()
	root.Bump()

	child, err := tt.ForkCurrent(ctx)
	require.NoError(err)
	assert.Equal([]uint64{4, 0}, child.Stamp().Path)
	assert.Equal(causal.ContextID(0), child.ContextID())

	childCtx, err := tt.Attach(ctx, child)
	require.NoError(err)
	childID, ok := causal.ContextIDFrom(childCtx)
	require.True(ok)
	assert.NotEqual(root.ContextID(), childID)
	assert.Equal(childID, child.ContextID())

	current, err := tt.Registry().Current(childCtx)
	require.NoError(err)
	assert.True(current == child)

	_, _, err = tt.Trace(childCtx, causal.Here("recv"), "from child")
	require.NoError(err)
	assert.Equal([]uint64{4, 1}, child.Stamp().Path)
	assert.Equal([]uint64{4}, root.Stamp().Path)
}

func TestGo(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		tt      = newTestTracer(t)

		ctx, root = tt.RegisterRoot(context.Background())
		done      = make(chan []uint64, 1)
	)

	require.NoError(tt.Go(ctx, func(childCtx context.Context) {
		c, err := tt.Registry().Current(childCtx)
		if err != nil {
			done <- nil
			return
		}

		tt.Trace(childCtx, causal.Here("worker"), "hello")
		done <- c.Stamp().Path
	}))

	select {
	case path := <-done:
		assert.Equal([]uint64{1, 1}, path)
	case <-time.After(5 * time.Second):
		require.Fail("the child goroutine did not run")
	}

	assert.Equal([]uint64{1}, root.Stamp().Path)
	assert.Len(tt.broker.Sent(), 1)
	assert.Eventually(
		func() bool { return tt.Registry().Len() == 1 },
		5*time.Second,
		10*time.Millisecond,
	)
}

func TestClose(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)

		closeErr = errors.New("expected")
		closes   int
		tt       = newTestTracer(t,
			WithCloser(closerFunc(func() error {
				closes++
				return closeErr
			})),
			WithCloser(nil),
		)
	)

	ctx, _ := tt.RegisterRoot(context.Background())
	for i := 0; i < 3; i++ {
		_, _, err := tt.Trace(ctx, causal.Here("recv"), i)
		require.NoError(err)
	}

	require.NoError(tt.loop.Start())
	assert.ErrorIs(tt.Close(), closeErr)
	assert.Equal(1, closes)
	assert.Equal(0, tt.tracker.Len())
	assert.Equal(3.0, tt.delivered.Value())
	assert.Equal(delivery.Stopped, tt.loop.State())

	_, _, err := tt.Trace(ctx, causal.Here("recv"), "late")
	assert.ErrorIs(err, ErrClosed)

	assert.NoError(tt.Close())
	assert.Equal(1, closes)
}

func TestClosedForking(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		tt      = newTestTracer(t)
	)

	ctx, root := tt.RegisterRoot(context.Background())
	child, err := tt.ForkCurrent(ctx)
	require.NoError(err)
	require.NoError(tt.Close())

	before := root.Stamp().Path
	_, err = tt.ForkCurrent(ctx)
	assert.ErrorIs(err, ErrClosed)

	called := false
	assert.ErrorIs(
		tt.Go(ctx, func(context.Context) { called = true }),
		ErrClosed,
	)

	assert.False(called)
	assert.Equal(before, root.Stamp().Path)

	attached, err := tt.Attach(ctx, child)
	assert.ErrorIs(err, ErrClosed)
	assert.Equal(ctx, attached)
	assert.Equal(causal.ContextID(0), child.ContextID())
	assert.Equal(1, tt.Registry().Len())
}
