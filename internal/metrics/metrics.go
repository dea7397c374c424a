/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/diagridio/go-shell-cron/api"
)

const namespace = "crond"

// Metrics holds the collectors of the scheduler loop. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	jobsActive     prometheus.Gauge
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	appendFailures prometheus.Counter
	jobsRemoved    *prometheus.CounterVec
	scheduleLag    prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		jobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Number of jobs in the active set.",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Total number of job executions by outcome.",
		}, []string{"job", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_run_duration_seconds",
			Help:      "Wall time of job executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"job"}),
		appendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_append_failures_total",
			Help:      "Total number of history records that could not be written.",
		}),
		jobsRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_removed_total",
			Help:      "Total number of jobs removed from the active set.",
		}, []string{"reason"}),
		scheduleLag: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_lag_seconds",
			Help:      "Delay between the planned and actual start of the last job execution.",
		}),
	}
}

func (m *Metrics) SetJobsActive(n int) {
	if m == nil {
		return
	}
	m.jobsActive.Set(float64(n))
}

func (m *Metrics) ObserveRun(job string, status api.Status, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, status.String()).Inc()
	m.runDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *Metrics) HistoryAppendFailed() {
	if m == nil {
		return
	}
	m.appendFailures.Inc()
}

func (m *Metrics) JobRemoved(reason string) {
	if m == nil {
		return
	}
	m.jobsRemoved.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLag(d time.Duration) {
	if m == nil {
		return
	}
	m.scheduleLag.Set(d.Seconds())
}
