package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks queued analysis jobs. Analysis carries the pipeline
// counters on the same registry.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	jobs     *prometheus.CounterVec
	jobTime  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	queueLag prometheus.Histogram

	Analysis *AnalysisMetrics
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	m := &WorkerMetrics{
		registry: registry,
		service:  service,
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_total",
			Help:        "Analysis jobs handled by the worker, by outcome.",
			ConstLabels: serviceLabel,
		}, []string{"outcome"}),
		jobTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "job_duration_seconds",
			Help:        "Wall time of one analysis job, extraction and model call included.",
			ConstLabels: serviceLabel,
			Buckets:     []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "jobs_in_flight",
			Help:        "Analysis jobs currently running.",
			ConstLabels: serviceLabel,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Time an upload waited between registration and the start of its analysis.",
			ConstLabels: serviceLabel,
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
	registry.MustRegister(m.jobs, m.jobTime, m.inFlight, m.queueLag)
	m.Analysis = NewAnalysisMetrics(service, registry)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackJob marks a job as running and returns the callback that records its
// outcome.
func (m *WorkerMetrics) TrackJob() func(err error) {
	start := time.Now()
	m.inFlight.Inc()
	return func(err error) {
		m.inFlight.Dec()
		outcome := jobOutcome(err)
		m.jobs.WithLabelValues(outcome).Inc()
		m.jobTime.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

// ObserveQueueLag drops negative values caused by clock skew between hosts.
func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}

func jobOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
