package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileJobMetrics records metadata for counter reconcile jobs.
type ReconcileJobMetrics struct {
	duration *prometheus.HistogramVec
	repaired *prometheus.CounterVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewReconcileJobMetrics registers the reconcile metrics on the provided registerer.
func NewReconcileJobMetrics(reg prometheus.Registerer) *ReconcileJobMetrics {
	if reg == nil {
		return &ReconcileJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_job_duration_seconds",
		Help:    "Duration of reconcile jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	repaired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_rows_repaired",
		Help: "Denormalized rows corrected by reconcile jobs.",
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_job_success",
		Help: "Successful reconcile job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_job_failure",
		Help: "Failed reconcile job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, repaired, success, failure)
	return &ReconcileJobMetrics{
		duration: duration,
		repaired: repaired,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (m *ReconcileJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// AddRepaired counts rows whose cached values were corrected.
func (m *ReconcileJobMetrics) AddRepaired(job string, rows int64) {
	if m == nil || m.repaired == nil || rows <= 0 {
		return
	}
	m.repaired.WithLabelValues(normalizeLabel(job)).Add(float64(rows))
}

// IncSuccess increments the success counter for the named job.
func (m *ReconcileJobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *ReconcileJobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(job string) string {
	trimmed := strings.TrimSpace(strings.ToLower(job))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "-")
}
