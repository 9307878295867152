// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/xmidt-org/causaltrace/causal"
	"github.com/xmidt-org/causaltrace/tracer"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

const exitMessage = "exit"

// workload is the demonstration: a main context forks a set of event loops, then sends
// each of them the same sequence of messages.  Every received message is traced.
type workload struct {
	Workers  int
	Messages int
	Trace    traceOptions
}

// traceOptions gates tracing in the demo.  All turns on every trace point; EventLoop
// turns on just the event loop's receive trace.
type traceOptions struct {
	All       bool
	EventLoop bool
}

func (o traceOptions) eventLoop() bool {
	return o.All || o.EventLoop
}

func (w workload) bodies() []string {
	bodies := make([]string, 0, w.Messages+1)
	for i := 1; i <= w.Messages; i++ {
		bodies = append(bodies, fmt.Sprintf("msg%d", i))
	}

	return append(bodies, exitMessage)
}

func (w workload) run(ctx context.Context, t *tracer.Tracer) error {
	ctx, root := t.RegisterRoot(ctx)
	defer t.Registry().Release(root.ContextID())

	var (
		bodies   = w.bodies()
		channels = make([]chan string, 0, w.Workers)
		wg       sync.WaitGroup
	)

	for i := 1; i <= w.Workers; i++ {
		var (
			name = fmt.Sprintf("event_loop #%d", i)
			ch   = make(chan string, len(bodies))
		)

		wg.Add(1)
		err := t.Go(ctx, func(childCtx context.Context) {
			defer wg.Done()
			eventLoop(childCtx, t, w.Trace, name, ch)
		})

		if err != nil {
			wg.Done()
			for _, ch := range channels {
				close(ch)
			}

			wg.Wait()
			return err
		}

		channels = append(channels, ch)
	}

	for _, m := range bodies {
		for _, ch := range channels {
			ch <- m
		}
	}

	wg.Wait()
	sallust.Get(ctx).Info("workload complete", zap.Int("workers", len(channels)), zap.Stringer("stamp", root.Stamp()))
	return nil
}

func eventLoop(ctx context.Context, t *tracer.Tracer, o traceOptions, name string, messages <-chan string) {
	var (
		logger = sallust.Get(ctx).With(zap.String("name", name))
		id, _  = causal.ContextIDFrom(ctx)
	)

	for received := range messages {
		if o.eventLoop() {
			body := map[string]interface{}{
				"context_id": uint64(id),
				"name":       name,
				"recv":       received,
			}

			if key, _, err := t.Trace(ctx, causal.Here("recv"), body); err != nil {
				logger.Error("unable to trace received message", zap.String("recv", received), zap.Error(err))
			} else {
				logger.Info("received", zap.String("recv", received), zap.ByteString("key", key))
			}
		} else {
			logger.Info("received", zap.String("recv", received))
		}

		if received == exitMessage {
			return
		}
	}
}
