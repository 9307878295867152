// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/provider"
)

// Names for our metrics
const (
	PublishedCount          = "trace_records_published_count"
	DeliveredCount          = "trace_deliveries_delivered_count"
	RejectedCount           = "trace_deliveries_rejected_count"
	CancelledCount          = "trace_deliveries_cancelled_count"
	PendingDeliveries       = "trace_pending_deliveries"
	SerializationErrorCount = "trace_serialization_errors_count"
)

// Measures is the set of metrics maintained by the tracing pipeline
type Measures struct {
	Published           metrics.Counter
	Delivered           metrics.Counter
	Rejected            metrics.Counter
	Cancelled           metrics.Counter
	Pending             metrics.Gauge
	SerializationErrors metrics.Counter
}

// NewMeasures realizes the metrics from a go-kit provider
func NewMeasures(p provider.Provider) Measures {
	return Measures{
		Published:           p.NewCounter(PublishedCount),
		Delivered:           p.NewCounter(DeliveredCount),
		Rejected:            p.NewCounter(RejectedCount),
		Cancelled:           p.NewCounter(CancelledCount),
		Pending:             p.NewGauge(PendingDeliveries),
		SerializationErrors: p.NewCounter(SerializationErrorCount),
	}
}

// DiscardMeasures returns Measures that record nothing
func DiscardMeasures() Measures {
	return Measures{
		Published:           discard.NewCounter(),
		Delivered:           discard.NewCounter(),
		Rejected:            discard.NewCounter(),
		Cancelled:           discard.NewCounter(),
		Pending:             discard.NewGauge(),
		SerializationErrors: discard.NewCounter(),
	}
}

// outcome returns the counter for the given outcome, or nil for an unknown outcome
func (m Measures) outcome(o Outcome) metrics.Counter {
	switch o {
	case Delivered:
		return m.Delivered
	case Rejected:
		return m.Rejected
	case Cancelled:
		return m.Cancelled
	default:
		return nil
	}
}
