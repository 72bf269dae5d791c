// Package attestmetrics exposes Prometheus instrumentation for the
// attestation verifier service. Metrics are registered against a
// caller-supplied registry rather than the global default, so multiple
// Metrics instances (e.g. one per test) never collide on registration.
package attestmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters and histograms attestserver records against.
type Metrics struct {
	VerifyTotal      *prometheus.CounterVec
	VerifyDuration   *prometheus.HistogramVec
	CacheResultTotal *prometheus.CounterVec
}

// New builds and registers a Metrics instance against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VerifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attestation_verify_total",
			Help: "Total attestation verification attempts, labeled by result.",
		}, []string{"result"}),
		VerifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attestation_verify_duration_seconds",
			Help:    "Attestation verification latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"result"}),
		CacheResultTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attestation_cache_result_total",
			Help: "Cache lookups performed before calling the verifier, labeled hit/miss.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.VerifyTotal, m.VerifyDuration, m.CacheResultTotal)
	return m
}

// ObserveVerify records one verification attempt's outcome and latency.
func (m *Metrics) ObserveVerify(result string, seconds float64) {
	m.VerifyTotal.WithLabelValues(result).Inc()
	m.VerifyDuration.WithLabelValues(result).Observe(seconds)
}

// ObserveCache records one cache lookup's outcome (hit or miss).
func (m *Metrics) ObserveCache(result string) {
	m.CacheResultTotal.WithLabelValues(result).Inc()
}
