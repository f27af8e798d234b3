// Package metrics exposes pipeline counters and histograms for Prometheus
// scraping. A single Metrics value is shared by the generation client and
// the job runner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spoolkit/spool/llm"
)

// Metrics holds the pipeline's instruments, registered on a caller-supplied
// registry so tests stay isolated.
type Metrics struct {
	UnitsProcessed     *prometheus.CounterVec
	UnitFailures       prometheus.Counter
	GenerationCalls    *prometheus.CounterVec
	GenerationSeconds  *prometheus.HistogramVec
	MemoryCompressions prometheus.Counter
}

var _ llm.CallObserver = (*Metrics)(nil)

// New registers the pipeline instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UnitsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spool",
			Name:      "units_processed_total",
			Help:      "Units processed, by terminal status.",
		}, []string{"status"}),
		UnitFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "spool",
			Name:      "unit_failures_total",
			Help:      "Units whose generation attempt errored.",
		}),
		GenerationCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spool",
			Name:      "generation_calls_total",
			Help:      "Generation calls, by provider, endpoint and outcome.",
		}, []string{"provider", "endpoint", "outcome"}),
		GenerationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spool",
			Name:      "generation_call_seconds",
			Help:      "Generation call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"provider", "endpoint"}),
		MemoryCompressions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "spool",
			Name:      "memory_compressions_total",
			Help:      "Context window compression calls.",
		}),
	}
}

// ObserveCall implements llm.CallObserver.
func (m *Metrics) ObserveCall(provider, endpoint string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GenerationCalls.WithLabelValues(provider, endpoint, outcome).Inc()
	m.GenerationSeconds.WithLabelValues(provider, endpoint).Observe(duration.Seconds())
}

// UnitDone records a unit reaching a terminal status.
func (m *Metrics) UnitDone(status string) {
	m.UnitsProcessed.WithLabelValues(status).Inc()
	if status == "failed" {
		m.UnitFailures.Inc()
	}
}

// CompressionDone records a context window compression call.
func (m *Metrics) CompressionDone() {
	m.MemoryCompressions.Inc()
}
