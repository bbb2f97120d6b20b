package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type jobMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newJobMetrics(reg prometheus.Registerer) *jobMetrics {
	m := &jobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_scheduler_job_runs_total",
			Help: "Scheduler job runs.",
		}, []string{"job"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_scheduler_job_errors_total",
			Help: "Scheduler job runs that reported failures.",
		}, []string{"job"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairdesk_scheduler_job_timeouts_total",
			Help: "Scheduler job runs cut off by their deadline.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repairdesk_scheduler_job_duration_seconds",
			Help:    "Scheduler job latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.errors, m.timeouts, m.duration)
	}
	return m
}

func (m *jobMetrics) observe(job string, elapsed time.Duration, failed, timedOut bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if failed {
		m.errors.WithLabelValues(job).Inc()
	}
	if timedOut {
		m.timeouts.WithLabelValues(job).Inc()
	}
}
