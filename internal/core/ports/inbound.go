package ports

import (
	"context"
	"io"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

// ComplianceAnalyzer is the inbound contract of the analysis pipeline. It never
// fails: problems come back as the error variant of the result.
type ComplianceAnalyzer interface {
	Analyze(ctx context.Context, documentText, documentType string, productCategory *string) domain.AnalysisResult
}

// UploadAnalyzer stores an uploaded PDF and analyzes it synchronously.
type UploadAnalyzer interface {
	AnalyzeUpload(ctx context.Context, req UploadRequest) (*domain.UploadAnalysis, error)
}

// CertificateScreener runs the quick supplier-certificate check.
type CertificateScreener interface {
	Screen(ctx context.Context, filename string, body io.Reader) (domain.CertificateScreening, error)
}

// UploadIngestor registers an upload and queues it for asynchronous analysis.
type UploadIngestor interface {
	Submit(ctx context.Context, req UploadRequest) (*domain.Upload, error)
}

// UploadReader is the read model for upload state.
type UploadReader interface {
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
}

// UploadProcessor analyzes a queued upload.
type UploadProcessor interface {
	ProcessByID(ctx context.Context, uploadID string) error
}

// UploadRequest carries one uploaded document and its form fields.
type UploadRequest struct {
	Filename        string
	MimeType        string
	Body            io.Reader
	DocumentType    string
	ProductCategory *string
}
