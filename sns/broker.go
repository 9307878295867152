// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package sns implements a broker that publishes trace records to an AWS SNS topic.
package sns

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awssns "github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/causaltrace/publisher"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// KeyAttribute is the message attribute carrying the record's publish key
	KeyAttribute = "trace.key"

	// EncodingAttribute is set to "base64" when a binary payload had to be encoded for transport
	EncodingAttribute = "trace.encoding"
)

// ErrClosed is the reason reported for records published after Close
var ErrClosed = errors.New("the sns broker has been closed")

// Option configures a Broker
type Option func(*Broker)

// WithLogger sets the broker's logger.  If nil, the default logger is used instead.
func WithLogger(l *zap.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		} else {
			b.logger = sallust.Default()
		}
	}
}

// WithAPI supplies the SNS client directly, bypassing session creation
func WithAPI(api snsiface.SNSAPI) Option {
	return func(b *Broker) {
		b.api = api
	}
}

// Broker publishes trace records to SNS.  Each Publish returns immediately; the send
// happens on its own goroutine and resolves the returned delivery.Pending.
type Broker struct {
	api      snsiface.SNSAPI
	timeout  time.Duration
	inFlight *semaphore.Weighted
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

var _ publisher.Broker = (*Broker)(nil)

// New creates an SNS Broker.  Unless WithAPI is used, an AWS session is created from the
// configuration.
func New(cfg Config, o ...Option) (*Broker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Broker{
		timeout:  cfg.timeout(),
		inFlight: semaphore.NewWeighted(cfg.maxInFlight()),
		logger:   sallust.Default(),
	}

	for _, f := range o {
		f(b)
	}

	if b.api == nil {
		api, err := newAPI(cfg)
		if err != nil {
			return nil, err
		}

		b.api = api
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b, nil
}

func newAPI(cfg Config) (snsiface.SNSAPI, error) {
	awsConfig := aws.NewConfig().WithRegion(cfg.Region)
	if len(cfg.Endpoint) > 0 {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint)
	}

	if len(cfg.AccessKey) > 0 {
		awsConfig = awsConfig.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}

	return awssns.New(sess), nil
}

// Publish sends a record to the given topic ARN
func (b *Broker) Publish(topic string, key, payload []byte) delivery.Pending {
	result := delivery.Result{
		Topic:   topic,
		Key:     key,
		Payload: payload,
	}

	if b.ctx.Err() != nil {
		result.Outcome = delivery.Cancelled
		result.Reason = ErrClosed
		return delivery.Resolved(result)
	}

	f := delivery.NewFuture()
	go b.send(f, result)
	return f
}

func (b *Broker) send(f *delivery.Future, result delivery.Result) {
	defer func() {
		f.Resolve(result)
	}()

	if err := b.inFlight.Acquire(b.ctx, 1); err != nil {
		result.Outcome = delivery.Cancelled
		result.Reason = ErrClosed
		return
	}

	defer b.inFlight.Release(1)

	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	_, err := b.api.PublishWithContext(ctx, newPublishInput(result.Topic, result.Key, result.Payload))
	switch {
	case err == nil:
		result.Outcome = delivery.Delivered

	case b.ctx.Err() != nil:
		result.Outcome = delivery.Cancelled
		result.Reason = err

	default:
		b.logger.Debug("sns publish failed", zap.String("topic", result.Topic), zap.Error(err))
		result.Outcome = delivery.Rejected
		result.Reason = err
	}
}

func newPublishInput(topic string, key, payload []byte) *awssns.PublishInput {
	attributes := map[string]*awssns.MessageAttributeValue{
		KeyAttribute: {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(key)),
		},
	}

	message := string(payload)
	if !utf8.Valid(payload) {
		message = base64.StdEncoding.EncodeToString(payload)
		attributes[EncodingAttribute] = &awssns.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String("base64"),
		}
	}

	return &awssns.PublishInput{
		TopicArn:          aws.String(topic),
		Message:           aws.String(message),
		MessageAttributes: attributes,
	}
}

// Close cancels any in-flight sends.  Their handles resolve as delivery.Cancelled.
func (b *Broker) Close() error {
	b.cancel()
	return nil
}
