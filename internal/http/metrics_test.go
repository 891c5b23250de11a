package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	reg := prometheus.NewRegistry()

	m, err := NewHTTPMetrics(reg, mp.Meter(httpInstrumentationName))
	require.NoError(t, err)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/api/v1/users/:user/plan", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/users/:user/days/:date/miss", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "invalid transition")
	})

	for _, target := range []string{"/api/v1/users/a/plan", "/api/v1/users/b/plan"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/a/days/2026-03-10/miss", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	// Route templates, not raw paths, become labels.
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/users/:user/plan", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "/api/v1/users/:user/days/:date/miss", "409")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requests))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = true
			if md.Name == "cadence.http.request_duration" {
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				var total uint64
				for _, dp := range hist.DataPoints {
					total += dp.Count
				}
				assert.Equal(t, uint64(3), total)
			}
		}
	}
	assert.True(t, found["cadence.http.request_duration"])
	assert.True(t, found["cadence.http.active_requests"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)

	s.do(http.MethodGet, "/health", "")
	rec := s.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `cadence_http_requests_total{method="GET",route="/health",status="200"} 1`), body)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/health", "/health"},
		{"/api/v1/users/:user/decision", "/api/v1/users/:user/decision"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input))
	}
}
