// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package publisher

import (
	"testing"

	"github.com/go-kit/kit/metrics/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/causaltrace/delivery"
	"go.uber.org/zap/zaptest"
)

func TestNew(t *testing.T) {
	var (
		assert  = assert.New(t)
		broker  = new(mockBroker)
		tracker = delivery.NewTracker()
	)

	assert.Panics(func() { New(nil, tracker) })
	assert.Panics(func() { New(broker, nil) })

	p := New(broker, tracker, WithTopic(""), WithLogger(nil), WithPublishedCounter(nil))
	assert.Equal(DefaultTopic, p.Topic())

	p = New(broker, tracker, WithTopic("arn:aws:sns:us-east-1:000000000000:traces"))
	assert.Equal("arn:aws:sns:us-east-1:000000000000:traces", p.Topic())
}

func TestPublish(t *testing.T) {
	var (
		assert    = assert.New(t)
		broker    = new(mockBroker)
		tracker   = delivery.NewTracker()
		published = generic.NewCounter(delivery.PublishedCount)
		pending   = delivery.NewFuture()

		p = New(broker, tracker, WithLogger(zaptest.NewLogger(t)), WithPublishedCounter(published))
	)

	broker.On("Publish", DefaultTopic, []byte("key"), []byte("payload")).Return(pending).Once()
	p.Publish([]byte("key"), []byte("payload"))

	assert.Equal(1, tracker.Len())
	assert.Equal(1.0, published.Value())

	// publishing never waits on the delivery
	select {
	case <-pending.Done():
		assert.Fail("The delivery should still be pending")
	default:
	}

	pending.Resolve(delivery.Result{Outcome: delivery.Delivered})
	assert.Equal(1, tracker.DrainAndResolve(nil))
	broker.AssertExpectations(t)
}

func TestPublishNoPending(t *testing.T) {
	var (
		assert   = assert.New(t)
		require  = require.New(t)
		broker   = new(mockBroker)
		tracker  = delivery.NewTracker()
		p        = New(broker, tracker, WithTopic("traces"), WithLogger(zaptest.NewLogger(t)))
		reported []delivery.Result
	)

	broker.On("Publish", "traces", []byte("key"), []byte("payload")).Return(nil).Once()
	p.Publish([]byte("key"), []byte("payload"))
	require.Equal(1, tracker.Len())

	tracker.DrainAndResolve(delivery.ReporterFunc(func(r delivery.Result) {
		reported = append(reported, r)
	}))

	require.Len(reported, 1)
	assert.Equal(delivery.Cancelled, reported[0].Outcome)
	assert.Equal(ErrNoPending, reported[0].Reason)
	assert.Equal("traces", reported[0].Topic)
	assert.Equal([]byte("payload"), reported[0].Payload)
	broker.AssertExpectations(t)
}

func TestBrokerFunc(t *testing.T) {
	var (
		assert   = assert.New(t)
		expected = delivery.Resolved(delivery.Result{})
		b        = BrokerFunc(func(topic string, key, payload []byte) delivery.Pending {
			assert.Equal("t", topic)
			return expected
		})
	)

	assert.Equal(expected, b.Publish("t", nil, nil))
}
