package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/cadence/internal/source"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/cadence/internal/orchestrator"

// Pass outcomes.
const (
	OutcomeFresh    = "fresh"
	OutcomeDegraded = "degraded"
	OutcomeCached   = "cached"
	OutcomeShared   = "shared"
)

// Metrics provides OpenTelemetry instruments for orchestration.
type Metrics struct {
	passes         metric.Int64Counter
	sourceDuration metric.Float64Histogram
	unavailable    metric.Int64Counter
}

// NewMetrics creates the instruments. A nil meter uses the global meter
// provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.passes, err = meter.Int64Counter(
		"cadence.orchestrator.passes",
		metric.WithDescription("Decision requests by outcome"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	m.sourceDuration, err = meter.Float64Histogram(
		"cadence.source.duration",
		metric.WithDescription("Recommendation source call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 4, 8),
	)
	if err != nil {
		return nil, err
	}

	m.unavailable, err = meter.Int64Counter(
		"cadence.source.unavailable",
		metric.WithDescription("Recommendation source results replaced by fallbacks"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPass counts one decision request.
func (m *Metrics) RecordPass(ctx context.Context, outcome string, purpose Purpose) {
	if m == nil {
		return
	}
	m.passes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("purpose", string(purpose)),
	))
}

// RecordSource records one source call.
func (m *Metrics) RecordSource(ctx context.Context, id source.ID, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.sourceDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("source", string(id)),
		attribute.Bool("ok", ok),
	))
}

// RecordUnavailable counts a result that fell back to defaults.
func (m *Metrics) RecordUnavailable(ctx context.Context, id source.ID, reason source.Reason) {
	if m == nil {
		return
	}
	m.unavailable.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(id)),
		attribute.String("reason", string(reason)),
	))
}

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
