package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/cadence/internal/http"

// HTTPMetrics records request metrics twice: as Prometheus collectors
// scraped from /metrics, and as OTEL instruments exported with the rest of
// the telemetry.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	requestDur     metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the Prometheus collectors with reg and creates
// the OTEL instruments from meter. A nil meter uses the global provider.
// Collectors already registered by an earlier server are reused.
func NewHTTPMetrics(reg prometheus.Registerer, meter metric.Meter) (*HTTPMetrics, error) {
	if meter == nil {
		meter = otel.Meter(httpInstrumentationName)
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cadence_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cadence_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	m := &HTTPMetrics{}
	var err error
	if m.requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	m.requestDur, err = meter.Float64Histogram(
		"cadence.http.request_duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	m.activeRequests, err = meter.Int64UpDownCounter(
		"cadence.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
// Handler errors are resolved here so the recorded status is final.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			method := c.Request().Method
			route := normalizePath(c.Path())

			m.activeRequests.Add(ctx, 1)
			defer m.activeRequests.Add(ctx, -1)

			if err := next(c); err != nil {
				c.Error(err)
			}

			elapsed := time.Since(start).Seconds()
			status := c.Response().Status
			m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(elapsed)
			m.requestDur.Record(ctx, elapsed, metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("route", route),
				attribute.Int("status", status),
			))
			return nil
		}
	}
}

// normalizePath keeps label cardinality bounded. Echo reports the route
// template (/api/v1/users/:user/plan), never the raw URL, so only unmatched
// requests need folding.
func normalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
