package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes engine counters. Counters are registered on the default
// prometheus registry so the gorm prometheus plugin and the engine share
// one registry.
type Metrics struct {
	Evaluations     *prometheus.CounterVec
	CleanupBatches  *prometheus.CounterVec
	CleanupJobs     *prometheus.CounterVec
	CleanupDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Name:      "evaluations_total",
			Help:      "Rule engine evaluations by component and outcome.",
		}, []string{"component", "outcome"}),
		CleanupBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Name:      "cleanup_batches_total",
			Help:      "Cascade cleanup batches by outcome.",
		}, []string{"outcome"}),
		CleanupJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Name:      "cleanup_jobs_total",
			Help:      "Cascade cleanup jobs by terminal state.",
		}, []string{"state"}),
		CleanupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loyalty",
			Name:      "cleanup_job_duration_seconds",
			Help:      "Wall time spent draining a cleanup job.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveEvaluation(component string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Evaluations.WithLabelValues(component, outcome).Inc()
}

func (m *Metrics) ObserveCleanupJob(state string, seconds float64) {
	if m == nil {
		return
	}
	m.CleanupJobs.WithLabelValues(state).Inc()
	m.CleanupDuration.Observe(seconds)
}

func (m *Metrics) ObserveCleanupBatch(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CleanupBatches.WithLabelValues(outcome).Inc()
}
