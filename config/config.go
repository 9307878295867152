// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package config loads the causaltrace application configuration through viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/xmidt-org/causaltrace/causal"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/causaltrace/publisher"
	"github.com/xmidt-org/causaltrace/sns"
	"github.com/xmidt-org/sallust"
)

const (
	ApplicationName = "causaltrace"

	LogKey     = "log"
	TracerKey  = "tracer"
	BrokerKey  = "broker"
	MetricsKey = "metrics"

	// SNSBroker and SpoolBroker are the recognized values of broker.type
	SNSBroker   = "sns"
	SpoolBroker = "spool"
)

var (
	ErrUnknownBroker      = errors.New("unknown broker type")
	ErrNoSpoolDir         = errors.New("a spool dataDir is required")
	ErrNoTopic            = errors.New("a tracer topic is required")
	ErrInvalidInterval    = errors.New("the flush interval must be positive")
	ErrNoMetricsNamespace = errors.New("a metrics namespace is required")
)

// DefaultValues are the defaults applied to every Viper produced by NewViper
var DefaultValues = Defaults{
	"tracer.topic":         publisher.DefaultTopic,
	"tracer.format":        causal.JSON.String(),
	"tracer.flushInterval": delivery.DefaultInterval,
	"broker.type":          SpoolBroker,
	"broker.spool.dataDir": ApplicationName + "-spool",
	"broker.sns.timeout":   sns.DefaultTimeout,
	"metrics.address":      ":9090",
	"metrics.namespace":    "xmidt",
	"metrics.subsystem":    ApplicationName,
}

// Tracer configures record production and reconciliation
type Tracer struct {
	Topic         string
	Format        string
	FlushInterval time.Duration
}

// Spool configures the local pebble broker
type Spool struct {
	DataDir string
	Sync    bool
}

// Broker selects and configures the broker
type Broker struct {
	Type  string
	SNS   sns.Config
	Spool Spool
}

// Metrics configures the prometheus endpoint
type Metrics struct {
	Address   string
	Namespace string
	Subsystem string
}

// Config is the complete application configuration
type Config struct {
	Log     sallust.Config
	Tracer  Tracer
	Broker  Broker
	Metrics Metrics
}

// FromViper unmarshals and validates a Config.  A nil Viper yields an unvalidated zero Config.
func FromViper(v *viper.Viper) (c Config, err error) {
	if v == nil {
		return
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, err
	}

	if err = c.Validate(); err != nil {
		return Config{}, err
	}

	return
}

// RecordFormat parses the configured record encoding
func (c Config) RecordFormat() (causal.Format, error) {
	return causal.ParseFormat(c.Tracer.Format)
}

// Validate checks the configuration for errors that would prevent startup
func (c Config) Validate() error {
	if len(c.Tracer.Topic) == 0 {
		return ErrNoTopic
	}

	if c.Tracer.FlushInterval <= 0 {
		return ErrInvalidInterval
	}

	if _, err := c.RecordFormat(); err != nil {
		return err
	}

	if len(c.Metrics.Namespace) == 0 {
		return ErrNoMetricsNamespace
	}

	switch c.Broker.Type {
	case SNSBroker:
		if err := c.Broker.SNS.Validate(); err != nil {
			return fmt.Errorf("invalid sns broker: %w", err)
		}

	case SpoolBroker:
		if len(c.Broker.Spool.DataDir) == 0 {
			return ErrNoSpoolDir
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownBroker, c.Broker.Type)
	}

	return nil
}
