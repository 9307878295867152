// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"errors"
	"fmt"
)

var (
	// ErrUnregisteredContext indicates that a context attempted to trace before registering a Clock.
	// This is a usage error.  Use errors.Is to test for it.
	ErrUnregisteredContext = errors.New("no causal clock is registered for the context")

	// ErrInvalidFormat is returned when a record is encoded or decoded with an unknown Format
	ErrInvalidFormat = errors.New("invalid record format")

	// ErrUnsupportedValue indicates that a record body holds a value its format cannot represent
	ErrUnsupportedValue = errors.New("unsupported value")
)

// UnregisteredContextError reports the ContextID that had no registered Clock
type UnregisteredContextError struct {
	ContextID ContextID
}

func (e *UnregisteredContextError) Error() string {
	return fmt.Sprintf("no causal clock is registered for context %s", e.ContextID)
}

func (e *UnregisteredContextError) Unwrap() error {
	return ErrUnregisteredContext
}

// SerializationError is returned when a trace record cannot be encoded.  The event has
// already advanced the clock, but no record was produced for it.
type SerializationError struct {
	Stamp  Stamp
	Format Format
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("unable to encode trace record [%s] as %s: %s", e.Stamp, e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
