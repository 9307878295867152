// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/kit/metrics/provider"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/xmidt-org/causaltrace/causal"
	"github.com/xmidt-org/causaltrace/config"
	"github.com/xmidt-org/causaltrace/delivery"
	"github.com/xmidt-org/causaltrace/publisher"
	"github.com/xmidt-org/causaltrace/sns"
	"github.com/xmidt-org/causaltrace/spool"
	"github.com/xmidt-org/causaltrace/tracer"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	workersFlag        = "workers"
	messagesFlag       = "messages"
	traceAllFlag       = "trace-all"
	traceEventLoopFlag = "trace-event-loop"
)

func newFlagSet() (*pflag.FlagSet, *workload) {
	var (
		fs = pflag.NewFlagSet(config.ApplicationName, pflag.ContinueOnError)
		w  = new(workload)
	)

	fs.StringP(config.FileFlag, "f", "", "the configuration file")
	fs.IntVarP(&w.Workers, workersFlag, "w", 9, "the number of event loops to fork")
	fs.IntVarP(&w.Messages, messagesFlag, "m", 5, "the number of messages sent to each event loop before exit")
	fs.BoolVar(&w.Trace.All, traceAllFlag, false, "enables every trace point")
	fs.BoolVar(&w.Trace.EventLoop, traceEventLoopFlag, true, "enables tracing of messages received by event loops")
	return fs, w
}

type brokerOut struct {
	fx.Out

	Broker publisher.Broker
	Closer io.Closer `name:"brokerCloser"`
}

func provideBroker(cfg config.Config, logger *zap.Logger) (brokerOut, error) {
	switch cfg.Broker.Type {
	case config.SNSBroker:
		b, err := sns.New(cfg.Broker.SNS, sns.WithLogger(logger))
		if err != nil {
			return brokerOut{}, err
		}

		return brokerOut{Broker: b, Closer: b}, nil

	case config.SpoolBroker:
		s, err := spool.Open(spool.Options{
			DataDir: cfg.Broker.Spool.DataDir,
			Sync:    cfg.Broker.Spool.Sync,
			Logger:  logger,
		})

		if err != nil {
			return brokerOut{}, err
		}

		return brokerOut{Broker: s, Closer: s}, nil

	default:
		return brokerOut{}, fmt.Errorf("%w: %q", config.ErrUnknownBroker, cfg.Broker.Type)
	}
}

func provideMeasures(cfg config.Config) delivery.Measures {
	return delivery.NewMeasures(
		provider.NewPrometheusProvider(cfg.Metrics.Namespace, cfg.Metrics.Subsystem),
	)
}

func provideRegistry(cfg config.Config) (*causal.Registry, error) {
	f, err := cfg.RecordFormat()
	if err != nil {
		return nil, err
	}

	return causal.NewRegistry(causal.WithFormat(f)), nil
}

func provideTracker(m delivery.Measures) *delivery.Tracker {
	return delivery.NewTracker(delivery.WithPendingGauge(m.Pending))
}

func providePublisher(cfg config.Config, logger *zap.Logger, m delivery.Measures, b publisher.Broker, t *delivery.Tracker) *publisher.Publisher {
	return publisher.New(
		b,
		t,
		publisher.WithTopic(cfg.Tracer.Topic),
		publisher.WithLogger(logger),
		publisher.WithPublishedCounter(m.Published),
	)
}

func provideFlushLoop(cfg config.Config, logger *zap.Logger, m delivery.Measures, t *delivery.Tracker) *delivery.FlushLoop {
	return delivery.NewFlushLoop(
		t,
		delivery.WithInterval(cfg.Tracer.FlushInterval),
		delivery.WithLogger(logger),
		delivery.WithMeasures(m),
	)
}

type tracerIn struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Measures  delivery.Measures
	Registry  *causal.Registry
	Publisher *publisher.Publisher
	Loop      *delivery.FlushLoop
	Closer    io.Closer `name:"brokerCloser"`
}

func provideTracer(in tracerIn) *tracer.Tracer {
	t := tracer.New(
		in.Registry,
		in.Publisher,
		in.Loop,
		tracer.WithLogger(in.Logger),
		tracer.WithSerializationErrors(in.Measures.SerializationErrors),
		tracer.WithCloser(in.Closer),
	)

	in.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return in.Loop.Start()
		},
		OnStop: func(context.Context) error {
			return t.Close()
		},
	})

	return t
}

func provideMetricsServer(cfg config.Config, logger *zap.Logger, lc fx.Lifecycle) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}

			logger.Info("metrics server listening", zap.Stringer("address", l.Addr()))
			go func() {
				if err := server.Serve(l); !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server exited", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: server.Shutdown,
	})

	return server
}

func runWorkload(w workload, t *tracer.Tracer, logger *zap.Logger, s fx.Shutdowner, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := w.run(context.Background(), t); err != nil {
					logger.Error("workload failed", zap.Error(err))
				}

				if err := s.Shutdown(); err != nil {
					logger.Error("unable to shut down", zap.Error(err))
				}
			}()

			return nil
		},
	})
}

func appOptions(cfg config.Config, logger *zap.Logger, w workload) fx.Option {
	return fx.Options(
		fx.Supply(cfg, logger, w),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		fx.Provide(
			provideBroker,
			provideMeasures,
			provideRegistry,
			provideTracker,
			providePublisher,
			provideFlushLoop,
			provideTracer,
			provideMetricsServer,
		),
		fx.Invoke(
			func(*http.Server) {},
			runWorkload,
		),
	)
}

func run(arguments []string) error {
	fs, w := newFlagSet()
	v, err := config.NewViper(fs, arguments)
	if err != nil {
		return err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.Build()
	if err != nil {
		return err
	}

	defer logger.Sync()
	app := fx.New(appOptions(cfg, logger, *w))
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
