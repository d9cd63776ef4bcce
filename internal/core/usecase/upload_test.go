package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

func TestAnalyzeUploadSuccess(t *testing.T) {
	storage := newStorageFake()
	extractor := &extractorFake{text: "extracted text"}
	analyzer := &analyzerFake{result: domain.AnalysisResult{RiskLevel: domain.RiskLow}}
	uc := NewUploadAnalysisUseCase(storage, extractor, analyzer, quietLogger())

	out, err := uc.AnalyzeUpload(context.Background(), ports.UploadRequest{
		Filename:        "My DoC.pdf",
		MimeType:        "application/pdf",
		Body:            strings.NewReader("%PDF-1.4"),
		DocumentType:    "Declaration_Of_Conformity",
		ProductCategory: strPtr("toys"),
	})
	if err != nil {
		t.Fatalf("AnalyzeUpload() error = %v", err)
	}
	if out.FileID == "" {
		t.Fatalf("expected file id")
	}
	if out.Filename != "My_DoC.pdf" {
		t.Fatalf("expected sanitized filename, got %s", out.Filename)
	}
	if out.DocumentType != domain.DocumentDeclarationOfConformity {
		t.Fatalf("unexpected document type %s", out.DocumentType)
	}
	if out.ProductCategory == nil || *out.ProductCategory != domain.CategoryToys {
		t.Fatalf("unexpected category %v", out.ProductCategory)
	}
	if storage.saved[out.FileID+".pdf"] != "%PDF-1.4" {
		t.Fatalf("expected stored body under id key, got %v", storage.saved)
	}
	if extractor.seen == nil || extractor.seen.SizeBytes != 8 {
		t.Fatalf("expected extractor to see stored upload, got %+v", extractor.seen)
	}
	if len(analyzer.calls) != 1 || analyzer.calls[0].text != "extracted text" {
		t.Fatalf("unexpected analyzer calls: %+v", analyzer.calls)
	}
	if analyzer.calls[0].docType != "Declaration_Of_Conformity" {
		t.Fatalf("analyzer should receive the raw document type, got %s", analyzer.calls[0].docType)
	}
}

func TestAnalyzeUploadRejectsNonPDF(t *testing.T) {
	storage := newStorageFake()
	uc := NewUploadAnalysisUseCase(storage, &extractorFake{}, &analyzerFake{}, quietLogger())

	_, err := uc.AnalyzeUpload(context.Background(), ports.UploadRequest{
		Filename: "notes.txt",
		Body:     strings.NewReader("hello"),
	})
	if !errors.Is(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("expected unsupported media, got %v", err)
	}
	if len(storage.saved) != 0 {
		t.Fatalf("nothing should be stored for rejected files")
	}
}

func TestAnalyzeUploadRejectsMissingFilename(t *testing.T) {
	uc := NewUploadAnalysisUseCase(newStorageFake(), &extractorFake{}, &analyzerFake{}, quietLogger())

	_, err := uc.AnalyzeUpload(context.Background(), ports.UploadRequest{Body: strings.NewReader("x")})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAnalyzeUploadExtractErrorRemovesStoredFile(t *testing.T) {
	storage := newStorageFake()
	extractErr := domain.WrapError(domain.ErrInvalidInput, "parse pdf", errors.New("broken xref"))
	analyzer := &analyzerFake{}
	uc := NewUploadAnalysisUseCase(storage, &extractorFake{err: extractErr}, analyzer, quietLogger())

	_, err := uc.AnalyzeUpload(context.Background(), ports.UploadRequest{
		Filename: "broken.pdf",
		Body:     strings.NewReader("garbage"),
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(storage.removed) != 1 || len(storage.saved) != 0 {
		t.Fatalf("expected stored file to be removed, saved=%v removed=%v", storage.saved, storage.removed)
	}
	if len(analyzer.calls) != 0 {
		t.Fatalf("analyzer must not run after extraction failure")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report 1.pdf":        "report_1.pdf",
		"../../etc/passwd":    "passwd",
		"über€.pdf":           "_ber_.pdf",
		"":                    "document.pdf",
		"dir/Test-File_2.PDF": "Test-File_2.PDF",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
