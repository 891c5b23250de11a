package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/logging"
	"github.com/fyrsmithlabs/cadence/internal/source"
)

// DefaultTimeout bounds one fan-out over all sources.
const DefaultTimeout = 8 * time.Second

// Executor runs one fan-out/fan-in pass over the recommendation sources.
type Executor struct {
	providers []source.Provider
	timeout   time.Duration
	tracer    trace.Tracer
	metrics   *Metrics
	logger    *logging.Logger
}

// NewExecutor creates an executor. A non-positive timeout uses
// DefaultTimeout.
func NewExecutor(providers []source.Provider, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		providers: providers,
		timeout:   timeout,
		tracer:    Tracer(),
		logger:    logging.NewNop(),
	}
}

type indexed struct {
	i int
	r source.Result
}

// Run evaluates every provider concurrently and returns one result per
// provider. Providers still running when the timeout fires are reported
// as unavailable; their goroutines finish on their own and the results are
// dropped.
func (e *Executor) Run(ctx context.Context, uc source.UserContext, logs []source.Log) []source.Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Buffered so abandoned providers never block on send.
	ch := make(chan indexed, len(e.providers))
	for i, p := range e.providers {
		go func(i int, p source.Provider) {
			ch <- indexed{i: i, r: e.evaluate(ctx, p, uc, logs)}
		}(i, p)
	}

	results := make([]source.Result, len(e.providers))
	done := make([]bool, len(e.providers))
collect:
	for remaining := len(e.providers); remaining > 0; remaining-- {
		select {
		case got := <-ch:
			results[got.i] = got.r
			done[got.i] = true
		case <-ctx.Done():
			for i, p := range e.providers {
				if !done[i] {
					results[i] = source.Unavailable(p.ID(), source.ReasonTimeout, ctx.Err())
					e.logger.Warn(ctx, "source abandoned at deadline", zap.String("source", string(p.ID())))
				}
			}
			break collect
		}
	}

	for _, r := range results {
		if !r.IsOk() {
			e.metrics.RecordUnavailable(ctx, r.Source, r.Reason)
		}
	}
	return results
}

func (e *Executor) evaluate(ctx context.Context, p source.Provider, uc source.UserContext, logs []source.Log) source.Result {
	id := p.ID()
	ctx, span := e.tracer.Start(ctx, "source."+string(id), trace.WithAttributes(
		attribute.String("source.id", string(id)),
	))
	defer span.End()

	start := time.Now()
	r := source.Evaluate(ctx, p, uc, logs)
	e.metrics.RecordSource(ctx, id, time.Since(start), r.IsOk())

	if !r.IsOk() {
		span.SetAttributes(attribute.String("source.reason", string(r.Reason)))
		span.SetStatus(codes.Error, string(r.Reason))
		e.logger.Debug(ctx, "source unavailable",
			zap.String("source", string(id)),
			zap.String("reason", string(r.Reason)),
			zap.Error(r.Err),
		)
		return r
	}
	e.logger.Trace(ctx, "source opinion",
		zap.String("source", string(id)),
		zap.Any("risk_scores", r.Opinion.RiskScores),
	)
	return r
}
