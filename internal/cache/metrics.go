package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the decision cache.
type Metrics struct {
	HitsTotal      *prometheus.CounterVec
	MissesTotal    *prometheus.CounterVec
	EvictionsTotal prometheus.Counter
	SharedTotal    prometheus.Counter
	Size           prometheus.Gauge
}

// NewMetrics registers the cache metrics once per process.
//
// Metrics:
//   - cadence_cache_hits_total{purpose}
//   - cadence_cache_misses_total{purpose}
//   - cadence_cache_evictions_total - capacity evictions
//   - cadence_cache_shared_total - callers served by an in-flight computation
//   - cadence_cache_size
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cadence_cache_hits_total",
					Help: "Total number of decision cache hits",
				},
				[]string{"purpose"},
			),
			MissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cadence_cache_misses_total",
					Help: "Total number of decision cache misses",
				},
				[]string{"purpose"},
			),
			EvictionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "cadence_cache_evictions_total",
					Help: "Total number of entries evicted for capacity",
				},
			),
			SharedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "cadence_cache_shared_total",
					Help: "Total number of callers that joined an in-flight computation",
				},
			),
			Size: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "cadence_cache_size",
					Help: "Current number of entries in the decision cache",
				},
			),
		}
	})

	return globalMetrics
}

// The helpers below tolerate a nil receiver so metrics stay optional.

func (m *Metrics) hit(purpose string) {
	if m != nil {
		m.HitsTotal.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) miss(purpose string) {
	if m != nil {
		m.MissesTotal.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) evict() {
	if m != nil {
		m.EvictionsTotal.Inc()
	}
}

func (m *Metrics) share() {
	if m != nil {
		m.SharedTotal.Inc()
	}
}

func (m *Metrics) size(n int) {
	if m != nil {
		m.Size.Set(float64(n))
	}
}
