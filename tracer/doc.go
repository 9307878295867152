// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package tracer is the entry point for instrumented code.

A Tracer ties together a causal.Registry, a publisher.Publisher, and the delivery.FlushLoop
that reconciles published records.  The main goroutine calls RegisterRoot once.  Every
goroutine it spawns is started either through Go, or by calling ForkCurrent in the parent
and Attach in the child:

	ctx, _ := t.RegisterRoot(context.Background())
	t.Go(ctx, func(ctx context.Context) {
		t.Trace(ctx, causal.Here("recv"), body)
	})

Close must be called on shutdown so that every outstanding delivery is resolved.
*/
package tracer
