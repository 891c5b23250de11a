package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clampCorrections     prometheus.Counter
	clampCorrectionsOnce sync.Once
)

// ClampCorrections returns the process-wide counter of values the safety
// clamp had to change, registered on first use as
// cadence_clamp_corrections_total.
func ClampCorrections() prometheus.Counter {
	clampCorrectionsOnce.Do(func() {
		clampCorrections = promauto.NewCounter(prometheus.CounterOpts{
			Name: "cadence_clamp_corrections_total",
			Help: "Total number of decision values corrected by the safety clamp",
		})
	})
	return clampCorrections
}
