package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics instruments the API. Analysis carries the pipeline
// counters on the same registry so /metrics exposes both.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	uploadBytes prometheus.Histogram

	Analysis *AnalysisMetrics
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	m := &HTTPServerMetrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "HTTP requests by method, route and status code.",
			ConstLabels: serviceLabel,
		}, []string{"method", "path", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency in seconds.",
			ConstLabels: serviceLabel,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "HTTP requests being served.",
			ConstLabels: serviceLabel,
		}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "upload_size_bytes",
			Help:        "Size of accepted document uploads in bytes.",
			ConstLabels: serviceLabel,
			Buckets:     prometheus.ExponentialBuckets(16*1024, 4, 8),
		}),
	}
	registry.MustRegister(m.requests, m.latency, m.inFlight, m.uploadBytes)
	m.Analysis = NewAnalysisMetrics(service, registry)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request under its route pattern.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(m.inFlight, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := prometheus.Labels{"path": normalizePath(r.URL.Path)}
		handler := promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(route), next)
		handler = promhttp.InstrumentHandlerDuration(m.latency.MustCurryWith(route), handler)
		handler.ServeHTTP(w, r)
	}))
}

func (m *HTTPServerMetrics) ObserveUploadSize(size int64) {
	if size < 0 {
		return
	}
	m.uploadBytes.Observe(float64(size))
}

// normalizePath folds path parameters so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{upload_id}"
	case strings.HasPrefix(path, "/api/ce/directives/"):
		return "/api/ce/directives/{product_category}"
	case strings.HasPrefix(path, "/api/ce/compliance-checklist/"):
		return "/api/ce/compliance-checklist/{document_type}"
	default:
		return path
	}
}
