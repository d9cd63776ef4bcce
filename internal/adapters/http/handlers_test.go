package httpadapter

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

func postJSON(handler http.Handler, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAnalyzeTextDefaultsDocumentType(t *testing.T) {
	analyzer := &analyzerFake{result: domain.AnalysisResult{RiskLevel: domain.RiskLow, ConfidenceScore: 0.85}}
	handler := newTestHandler(t, config.Config{MaxUploadBytes: 1 << 20}, Services{Analyzer: analyzer})

	res := postJSON(handler, "/v1/analyze", `{"document_text":"Manufacturer: ACME"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if analyzer.text != "Manufacturer: ACME" {
		t.Fatalf("unexpected text passed: %q", analyzer.text)
	}
	if analyzer.documentType != "general" {
		t.Fatalf("expected general document type, got %q", analyzer.documentType)
	}
	if analyzer.category != nil {
		t.Fatalf("expected nil category, got %q", *analyzer.category)
	}
	if body := decodeBody(t, res); body["risk_level"] != "LOW" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestAnalyzeTextPassesCategory(t *testing.T) {
	analyzer := &analyzerFake{result: domain.AnalysisResult{RiskLevel: domain.RiskHigh}}
	handler := newTestHandler(t, config.Config{}, Services{Analyzer: analyzer})

	res := postJSON(handler, "/v1/analyze",
		`{"document_text":"Risk: HIGH","document_type":"declaration_of_conformity","product_category":"electronics"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if analyzer.documentType != "declaration_of_conformity" {
		t.Fatalf("unexpected document type: %q", analyzer.documentType)
	}
	if analyzer.category == nil || *analyzer.category != "electronics" {
		t.Fatalf("unexpected category: %v", analyzer.category)
	}
}

func TestAnalyzeTextFailureIsStill200(t *testing.T) {
	analyzer := &analyzerFake{result: domain.NewFailedAnalysis("Analysis failed: the analysis timed out")}
	handler := newTestHandler(t, config.Config{}, Services{Analyzer: analyzer})

	res := postJSON(handler, "/v1/analyze", `{"document_text":"x"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if len(body) != 3 || body["risk_level"] != "UNKNOWN" {
		t.Fatalf("expected error variant, got %+v", body)
	}
}

func TestAnalyzeTextRejectsContractViolations(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"missing text", `{"document_type":"technical_file"}`},
		{"unknown field", `{"document_text":"x","extra":true}`},
		{"wrong type", `{"document_text":42}`},
		{"not json", `document_text=x`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analyzer := &analyzerFake{}
			handler := newTestHandler(t, config.Config{}, Services{Analyzer: analyzer})

			res := postJSON(handler, "/v1/analyze", tc.payload)

			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			if analyzer.text != "" {
				t.Fatalf("analyzer must not run for invalid requests")
			}
		})
	}
}

func TestAnalyzeTextRequiresJSONContentType(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, Services{Analyzer: &analyzerFake{}})

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"document_text":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentReturnsAnalysis(t *testing.T) {
	uploads := &uploadsFake{}
	handler := newTestHandler(t, config.Config{MaxUploadBytes: 1 << 20}, Services{Uploads: uploads})

	body, contentType := multipartBody(t, "doc.pdf", []byte("%PDF-1.4 body"), map[string]string{
		"document_type":    "technical_file",
		"product_category": "machinery",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if uploads.req.Filename != "doc.pdf" || uploads.req.DocumentType != "technical_file" {
		t.Fatalf("unexpected upload request: %+v", uploads.req)
	}
	if uploads.req.ProductCategory == nil || *uploads.req.ProductCategory != "machinery" {
		t.Fatalf("unexpected category: %v", uploads.req.ProductCategory)
	}
	if string(uploads.body) != "%PDF-1.4 body" {
		t.Fatalf("unexpected file body: %q", uploads.body)
	}

	resp := decodeBody(t, res)
	if resp["file_id"] != "file-1" || resp["document_type"] != "technical_file" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	analysis, ok := resp["analysis"].(map[string]any)
	if !ok || analysis["risk_level"] != "HIGH" {
		t.Fatalf("unexpected analysis: %+v", resp["analysis"])
	}
}

func TestUploadDocumentWithoutFieldsUsesDefaults(t *testing.T) {
	uploads := &uploadsFake{}
	handler := newTestHandler(t, config.Config{}, Services{Uploads: uploads})

	body, contentType := multipartBody(t, "doc.pdf", []byte("%PDF-1.4"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if uploads.req.DocumentType != "general" {
		t.Fatalf("expected general, got %q", uploads.req.DocumentType)
	}
	if uploads.req.ProductCategory != nil {
		t.Fatalf("expected nil category")
	}
}

func TestUploadDocumentMissingFile(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, Services{Uploads: &uploadsFake{}})

	body, contentType := multipartBody(t, "", nil, map[string]string{"document_type": "technical_file"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if resp := decodeBody(t, res); resp["error"] != "No file provided" {
		t.Fatalf("unexpected error: %+v", resp)
	}
}

func TestUploadDocumentNotMultipart(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, Services{Uploads: &uploadsFake{}})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentUnsupportedMediaReturns415(t *testing.T) {
	uploads := &uploadsFake{err: domain.WrapError(domain.ErrUnsupportedMedia, "upload", bytes.ErrTooLarge)}
	handler := newTestHandler(t, config.Config{}, Services{Uploads: uploads})

	body, contentType := multipartBody(t, "doc.txt", []byte("hello"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", res.Code)
	}
}

func TestUploadDocumentTooLargeReturns413(t *testing.T) {
	uploads := &uploadsFake{}
	handler := newTestHandler(t, config.Config{MaxUploadBytes: 64}, Services{Uploads: uploads})

	body, contentType := multipartBody(t, "doc.pdf", bytes.Repeat([]byte("a"), 4096), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if uploads.body != nil {
		t.Fatalf("use case must not run for oversized uploads")
	}
}

func TestUploadDocumentAsWorkbook(t *testing.T) {
	reports := &reportsFake{}
	handler := newTestHandler(t, config.Config{}, Services{Uploads: &uploadsFake{}, Reports: reports})

	body, contentType := multipartBody(t, "doc.pdf", []byte("%PDF-1.4"), map[string]string{"format": "xlsx"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, `doc-report.xlsx`) {
		t.Fatalf("unexpected disposition %q", got)
	}
	if reports.rendered.FileID != "file-1" {
		t.Fatalf("expected rendered analysis, got %+v", reports.rendered)
	}
	if res.Body.String() != "PK-xlsx" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestUploadCertificate(t *testing.T) {
	certificates := &certificatesFake{result: domain.CertificateScreening{
		RiskLevel: "Medium",
		Flags:     []string{"expired"},
		Summary:   "Certificate expired in 2023.",
	}}
	handler := newTestHandler(t, config.Config{}, Services{Certificates: certificates})

	body, contentType := multipartBody(t, "cert.pdf", []byte("%PDF-1.4"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload_certificate", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if certificates.filename != "cert.pdf" {
		t.Fatalf("unexpected filename %q", certificates.filename)
	}
	if resp := decodeBody(t, res); resp["risk_level"] != "Medium" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSubmitDocumentReturns202(t *testing.T) {
	ingestor := &ingestorFake{}
	handler := newTestHandler(t, config.Config{}, Services{Ingestor: ingestor})

	body, contentType := multipartBody(t, "doc.pdf", []byte("%PDF-1.4"), map[string]string{
		"document_type": "user_manual",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	resp := decodeBody(t, res)
	if resp["id"] != "upload-1" || resp["status"] != "received" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if ingestor.req.DocumentType != "user_manual" {
		t.Fatalf("unexpected document type %q", ingestor.req.DocumentType)
	}
}

func TestGetDocumentByID(t *testing.T) {
	reader := readerFake{uploads: map[string]*domain.Upload{
		"upload-1": {ID: "upload-1", Filename: "doc.pdf", Status: domain.UploadStatusAnalyzed, CreatedAt: time.Now().UTC()},
	}}
	handler := newTestHandler(t, config.Config{}, Services{Reader: reader})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/upload-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if resp := decodeBody(t, res); resp["status"] != "analyzed" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
