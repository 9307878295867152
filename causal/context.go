// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"context"
	"strconv"
)

// ContextID identifies an execution context, typically a goroutine, that owns a Clock.
// The zero value denotes a detached Clock which has not been registered yet.
type ContextID uint64

func (id ContextID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

type contextKey uint32

const contextIDKey contextKey = 1

// WithContextID adds the given ContextID to the context so that it can be retrieved with ContextIDFrom
func WithContextID(parent context.Context, id ContextID) context.Context {
	return context.WithValue(parent, contextIDKey, id)
}

// ContextIDFrom retrieves the ContextID associated with the context.  If no identity is
// present, this function returns false.
func ContextIDFrom(ctx context.Context) (ContextID, bool) {
	id, ok := ctx.Value(contextIDKey).(ContextID)
	return id, ok
}
