// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package causal stamps trace events with a per-goroutine vector clock.

Each execution context owns exactly one Clock.  A Clock's path has one element per fork
depth: every element but the last is the lineage frozen when the context was forked from
its parent, and the last element is a counter that strictly increases with every event
in that context.  Forking is itself an event in the parent, so a child's first event is
always causally after the parent event that spawned it.

Go does not expose goroutine identity, so a Registry issues ContextIDs and callers carry
them in a context.Context via WithContextID.  A forked Clock is detached until the child
goroutine registers it under its own ContextID.
*/
package causal
