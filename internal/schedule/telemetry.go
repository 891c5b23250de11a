package schedule

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/cadence/internal/schedule"

// Metrics records schedule operations.
type Metrics struct {
	operations metric.Int64Counter
	replanned  metric.Int64Counter
}

// NewMetrics creates schedule instruments. A nil meter uses the global
// meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.operations, err = meter.Int64Counter(
		"cadence.schedule.operations",
		metric.WithDescription("Schedule operations by name and result"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.replanned, err = meter.Int64Counter(
		"cadence.schedule.days.replanned",
		metric.WithDescription("Days rewritten by merges and replans"),
		metric.WithUnit("{day}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation counts one operation. User ids are left out to keep
// cardinality bounded.
func (m *Metrics) RecordOperation(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", result(err)),
	))
}

// RecordReplanned counts rewritten days.
func (m *Metrics) RecordReplanned(ctx context.Context, op string, days int) {
	if m == nil || days == 0 {
		return
	}
	m.replanned.Add(ctx, int64(days), metric.WithAttributes(attribute.String("operation", op)))
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrScheduleConflict):
		return "conflict"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "rejected"
	}
}

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
