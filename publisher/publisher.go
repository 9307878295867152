// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package publisher hands encoded trace records to a broker.
package publisher

import (
	"errors"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// DefaultTopic is the topic trace records are published to when none is configured
const DefaultTopic = "IPC"

// ErrNoPending is the reason reported when a broker returns no handle for a publish
var ErrNoPending = errors.New("the broker returned no pending delivery")

// Broker is the event bus capability.  Publish must not block: it starts an asynchronous
// send and returns a handle that resolves once the bus answers.
type Broker interface {
	Publish(topic string, key, payload []byte) delivery.Pending
}

// BrokerFunc is a function type that implements Broker
type BrokerFunc func(string, []byte, []byte) delivery.Pending

func (bf BrokerFunc) Publish(topic string, key, payload []byte) delivery.Pending {
	return bf(topic, key, payload)
}

// Option configures a Publisher
type Option func(*Publisher)

// WithTopic sets the fixed topic for all records.  If empty, DefaultTopic is used.
func WithTopic(topic string) Option {
	return func(p *Publisher) {
		if len(topic) > 0 {
			p.topic = topic
		} else {
			p.topic = DefaultTopic
		}
	}
}

// WithLogger sets the logger for this publisher.  If nil, the default logger is used instead.
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		} else {
			p.logger = sallust.Default()
		}
	}
}

// WithPublishedCounter sets the counter incremented for every publish
func WithPublishedCounter(c metrics.Counter) Option {
	return func(p *Publisher) {
		if c != nil {
			p.published = c
		} else {
			p.published = discard.NewCounter()
		}
	}
}

// Publisher hands encoded trace records to a Broker and tracks the resulting deliveries.
// It never retries and never waits on the broker.
type Publisher struct {
	broker    Broker
	tracker   *delivery.Tracker
	topic     string
	logger    *zap.Logger
	published metrics.Counter
}

// New creates a Publisher.  Both the broker and tracker are required.
func New(b Broker, t *delivery.Tracker, o ...Option) *Publisher {
	if b == nil {
		panic("A publisher.Broker is required")
	}

	if t == nil {
		panic("A delivery.Tracker is required")
	}

	p := &Publisher{
		broker:    b,
		tracker:   t,
		topic:     DefaultTopic,
		logger:    sallust.Default(),
		published: discard.NewCounter(),
	}

	for _, f := range o {
		f(p)
	}

	return p
}

// Topic returns the topic this publisher sends to
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish starts an asynchronous send of the given record and tracks it for reconciliation
func (p *Publisher) Publish(key, payload []byte) {
	pending := p.broker.Publish(p.topic, key, payload)
	if pending == nil {
		p.logger.Error("broker returned no pending delivery", zap.String("topic", p.topic), zap.ByteString("key", key))
		pending = delivery.Resolved(delivery.Result{
			Outcome: delivery.Cancelled,
			Topic:   p.topic,
			Key:     key,
			Payload: payload,
			Reason:  ErrNoPending,
		})
	}

	p.tracker.Track(pending)
	p.published.Add(1.0)
}
