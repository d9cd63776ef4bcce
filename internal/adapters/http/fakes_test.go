package httpadapter

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

type analyzerFake struct {
	text         string
	documentType string
	category     *string
	result       domain.AnalysisResult
	panicWith    any
}

func (f *analyzerFake) Analyze(_ context.Context, text, documentType string, category *string) domain.AnalysisResult {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	f.text = text
	f.documentType = documentType
	f.category = category
	return f.result
}

type uploadsFake struct {
	req  ports.UploadRequest
	body []byte
	err  error
}

func (f *uploadsFake) AnalyzeUpload(_ context.Context, req ports.UploadRequest) (*domain.UploadAnalysis, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.req = req
	f.body = raw
	if f.err != nil {
		return nil, f.err
	}
	category := domain.ParseProductCategory(req.ProductCategory)
	return &domain.UploadAnalysis{
		FileID:          "file-1",
		Filename:        req.Filename,
		DocumentType:    domain.ParseDocumentType(req.DocumentType),
		ProductCategory: category,
		Analysis: domain.AnalysisResult{
			DocumentType:    domain.ParseDocumentType(req.DocumentType),
			ProductCategory: category,
			RiskLevel:       domain.RiskHigh,
			ConfidenceScore: compliance.PlaceholderConfidence,
			Summary:         "summary",
		},
	}, nil
}

type certificatesFake struct {
	filename string
	result   domain.CertificateScreening
	err      error
}

func (f *certificatesFake) Screen(_ context.Context, filename string, body io.Reader) (domain.CertificateScreening, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return domain.CertificateScreening{}, err
	}
	f.filename = filename
	return f.result, f.err
}

type ingestorFake struct {
	req ports.UploadRequest
	err error
}

func (f *ingestorFake) Submit(_ context.Context, req ports.UploadRequest) (*domain.Upload, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.req = req
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	return &domain.Upload{
		ID:           "upload-1",
		Filename:     req.Filename,
		MimeType:     req.MimeType,
		StoragePath:  "upload-1.pdf",
		DocumentType: domain.ParseDocumentType(req.DocumentType),
		Status:       domain.UploadStatusReceived,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type readerFake struct {
	uploads map[string]*domain.Upload
}

func (f readerFake) GetByID(_ context.Context, id string) (*domain.Upload, error) {
	upload, ok := f.uploads[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrUploadNotFound, "get upload", io.EOF)
	}
	return upload, nil
}

type reportsFake struct {
	rendered domain.UploadAnalysis
}

func (f *reportsFake) Render(report domain.UploadAnalysis) ([]byte, error) {
	f.rendered = report
	return []byte("PK-xlsx"), nil
}

func newTestHandler(t *testing.T, cfg config.Config, services Services, opts ...Option) http.Handler {
	t.Helper()
	rt, err := NewRouter(cfg, nil, services, opts...)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return rt.Handler()
}

// multipartBody builds a form with one file part and the given fields.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s) error = %v", key, err)
		}
	}
	if filename != "" || content != nil {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}
