// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultTimeout is the per-message publish timeout used when none is configured
	DefaultTimeout = 5 * time.Second

	// DefaultMaxInFlight is the maximum number of concurrent publish calls used when none is configured
	DefaultMaxInFlight int64 = 100
)

var (
	ErrNoRegion          = errors.New("an AWS region is required")
	ErrInvalidCredential = errors.New("accessKey and secretKey must be supplied together")
)

// Config describes how to reach SNS.  When no static credentials are supplied, the
// SDK's default credential chain is used.
type Config struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Region    string `json:"region"`

	// Endpoint overrides the SNS endpoint, e.g. for a local emulator
	Endpoint string `json:"endpoint"`

	// Timeout bounds each publish call
	Timeout time.Duration `json:"timeout"`

	// MaxInFlight bounds the number of concurrent publish calls
	MaxInFlight int64 `json:"maxInFlight"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}

	return DefaultTimeout
}

func (c Config) maxInFlight() int64 {
	if c.MaxInFlight > 0 {
		return c.MaxInFlight
	}

	return DefaultMaxInFlight
}

// Validate returns an error if this configuration cannot be used to reach SNS
func (c Config) Validate() error {
	if len(c.Region) == 0 {
		return ErrNoRegion
	}

	if (len(c.AccessKey) == 0) != (len(c.SecretKey) == 0) {
		return ErrInvalidCredential
	}

	return nil
}

// NewConfig produces a validated Config from a Viper environment.  A nil Viper yields
// an empty Config, which fails validation.
func NewConfig(v *viper.Viper) (c Config, err error) {
	if v != nil {
		err = v.Unmarshal(&c)
	}

	if err != nil {
		return Config{}, err
	}

	if err = c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid sns config: %w", err)
	}

	c.Timeout = c.timeout()
	c.MaxInFlight = c.maxInFlight()
	return
}
