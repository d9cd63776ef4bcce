package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

// UploadAnalysisUseCase is the synchronous upload flow: store, extract, analyze.
type UploadAnalysisUseCase struct {
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	analyzer  ports.ComplianceAnalyzer
	logger    *slog.Logger
}

func NewUploadAnalysisUseCase(
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	analyzer ports.ComplianceAnalyzer,
	logger *slog.Logger,
) *UploadAnalysisUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadAnalysisUseCase{
		storage:   storage,
		extractor: extractor,
		analyzer:  analyzer,
		logger:    logger,
	}
}

func (uc *UploadAnalysisUseCase) AnalyzeUpload(ctx context.Context, req ports.UploadRequest) (*domain.UploadAnalysis, error) {
	if err := requirePDF(req.Filename); err != nil {
		return nil, err
	}

	upload, err := uc.store(ctx, req)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractor.Extract(ctx, upload)
	if err != nil {
		uc.discard(ctx, upload.StoragePath)
		return nil, fmt.Errorf("extract text: %w", err)
	}

	result := uc.analyzer.Analyze(ctx, text, req.DocumentType, req.ProductCategory)
	return &domain.UploadAnalysis{
		FileID:          upload.ID,
		Filename:        upload.Filename,
		DocumentType:    upload.DocumentType,
		ProductCategory: upload.ProductCategory,
		Analysis:        result,
	}, nil
}

func (uc *UploadAnalysisUseCase) store(ctx context.Context, req ports.UploadRequest) (*domain.Upload, error) {
	id := uuid.NewString()
	key := storageKey(id)
	size, err := uc.storage.Save(ctx, key, req.Body)
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	now := time.Now().UTC()
	return &domain.Upload{
		ID:              id,
		Filename:        sanitizeFilename(req.Filename),
		MimeType:        req.MimeType,
		StoragePath:     key,
		SizeBytes:       size,
		DocumentType:    domain.ParseDocumentType(req.DocumentType),
		ProductCategory: domain.ParseProductCategory(req.ProductCategory),
		Status:          domain.UploadStatusReceived,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (uc *UploadAnalysisUseCase) discard(ctx context.Context, key string) {
	if err := uc.storage.Remove(ctx, key); err != nil {
		uc.logger.Warn("upload_cleanup_failed", "storage_path", key, "error", err)
	}
}
