package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "patternmatch"

// Metrics are the Prometheus collectors of one server. Each server owns
// its registry so that several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// SearchDuration observes dataset search wall time.
	// Labels: strategy, axis
	SearchDuration *prometheus.HistogramVec

	// JobsTotal counts jobs by kind and final state.
	JobsTotal *prometheus.CounterVec

	// SkippedSeriesTotal counts series rejected by searches.
	SkippedSeriesTotal prometheus.Counter

	// RejectedJobsTotal counts job submissions refused by the rate limiter.
	RejectedJobsTotal prometheus.Counter

	// RunningJobs tracks jobs currently executing.
	RunningJobs prometheus.Gauge
}

// NewMetrics registers the server collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "search_duration_seconds",
				Help:      "Dataset search wall time by strategy and axis",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"strategy", "axis"},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "jobs_total",
				Help:      "Finished jobs by kind and final state",
			},
			[]string{"kind", "state"},
		),
		SkippedSeriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "skipped_series_total",
				Help:      "Series skipped because the query did not fit",
			},
		),
		RejectedJobsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rejected_jobs_total",
				Help:      "Job submissions rejected by the rate limiter",
			},
		),
		RunningJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "running_jobs",
				Help:      "Jobs currently executing",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
