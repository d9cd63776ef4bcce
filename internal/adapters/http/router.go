package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
	"github.com/kirillkom/compliance-decoder/internal/observability/metrics"
)

const serviceName = "Compliance Decoder API"

// ReportRenderer turns an upload analysis into a downloadable workbook.
type ReportRenderer interface {
	Render(report domain.UploadAnalysis) ([]byte, error)
}

// Services are the inbound ports the router dispatches to. A nil service
// disables its routes with 503.
type Services struct {
	Analyzer     ports.ComplianceAnalyzer
	Uploads      ports.UploadAnalyzer
	Certificates ports.CertificateScreener
	Ingestor     ports.UploadIngestor
	Reader       ports.UploadReader
	Reports      ReportRenderer
}

type Router struct {
	cfg       config.Config
	catalog   *compliance.Catalog
	services  Services
	validator *requestValidator
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

type Option func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(cfg config.Config, catalog *compliance.Catalog, services Services, opts ...Option) (*Router, error) {
	if catalog == nil {
		catalog = compliance.DefaultCatalog()
	}
	validator, err := newRequestValidator(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	rt := &Router{
		cfg:       cfg,
		catalog:   catalog,
		services:  services,
		validator: validator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/openapi.yaml", rt.contract)

	mux.HandleFunc("/api/upload", rt.uploadDocument)
	mux.HandleFunc("/api/upload_certificate", rt.uploadCertificate)
	mux.HandleFunc("/v1/analyze", rt.analyzeText)
	mux.HandleFunc("/v1/documents", rt.submitDocument)
	mux.HandleFunc("/v1/documents/{upload_id}", rt.getDocumentByID)

	mux.HandleFunc("/api/ce/document-types", rt.listDocumentTypes)
	mux.HandleFunc("/api/ce/product-categories", rt.listProductCategories)
	mux.HandleFunc("/api/ce/directives/{product_category}", rt.getDirectives)
	mux.HandleFunc("/api/ce/compliance-checklist/{document_type}", rt.getChecklist)

	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/", rt.notFound)

	var handler http.Handler = recoverMiddleware(rt.logger, mux)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = securityHeadersMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (rt *Router) contract(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func (rt *Router) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps err to a status. Internal details stay in the log for
// 5xx responses.
func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", operation,
			"error", err,
		)
		message = publicMessage(status)
	}
	writeError(w, status, message)
}

func unavailable(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "service not configured")
}
