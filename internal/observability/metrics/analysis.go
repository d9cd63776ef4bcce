package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

// AnalysisMetrics covers the compliance pipeline and its model calls. It is
// shared by the api, worker and CLI processes.
type AnalysisMetrics struct {
	service string

	analysesTotal *prometheus.CounterVec
	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
}

func NewAnalysisMetrics(service string, registerer prometheus.Registerer) *AnalysisMetrics {
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "total",
			Help:      "Completed analyses by document type and risk level.",
		},
		[]string{"service", "document_type", "risk_level", "status"},
	)
	modelCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Language model calls by outcome, retries included in one call.",
		},
		[]string{"service", "model", "outcome"},
	)
	modelDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Language model call latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "model"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "circuit_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(analysesTotal, modelCalls, modelDuration, breakerState)

	return &AnalysisMetrics{
		service:       service,
		analysesTotal: analysesTotal,
		modelCalls:    modelCalls,
		modelDuration: modelDuration,
		breakerState:  breakerState,
	}
}

func (m *AnalysisMetrics) ObserveAnalysis(result domain.AnalysisResult) {
	status := "success"
	docType := string(result.DocumentType)
	if result.Failed() {
		status = "error"
		docType = "unknown"
	}
	m.analysesTotal.WithLabelValues(m.service, docType, string(result.RiskLevel), status).Inc()
}

func (m *AnalysisMetrics) ObserveModelCall(model, outcome string, elapsed time.Duration) {
	m.modelCalls.WithLabelValues(m.service, model, outcome).Inc()
	m.modelDuration.WithLabelValues(m.service, model).Observe(elapsed.Seconds())
}

func (m *AnalysisMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(to))
}
