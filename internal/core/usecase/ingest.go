package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

// IngestUploadUseCase registers an upload and hands it to the worker.
type IngestUploadUseCase struct {
	repo    ports.UploadRepository
	storage ports.ObjectStorage
	queue   ports.AnalysisQueue
}

func NewIngestUploadUseCase(
	repo ports.UploadRepository,
	storage ports.ObjectStorage,
	queue ports.AnalysisQueue,
) *IngestUploadUseCase {
	return &IngestUploadUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestUploadUseCase) Submit(ctx context.Context, req ports.UploadRequest) (*domain.Upload, error) {
	if err := requirePDF(req.Filename); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := storageKey(id)
	now := time.Now().UTC()

	size, err := uc.storage.Save(ctx, key, req.Body)
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	upload := &domain.Upload{
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
	}

	if err := uc.repo.Create(ctx, upload); err != nil {
		return nil, errors.Join(
			fmt.Errorf("create upload record: %w", err),
			uc.removeFile(ctx, key),
		)
	}

	if err := uc.queue.PublishAnalysisRequested(ctx, upload.ID); err != nil {
		return nil, errors.Join(
			fmt.Errorf("publish analysis request: %w", err),
			uc.abandon(ctx, upload, err),
		)
	}

	return upload, nil
}

// abandon marks an upload that never reached the queue as failed and drops
// its file. Cleanup runs even when the request context is already done.
func (uc *IngestUploadUseCase) abandon(ctx context.Context, upload *domain.Upload, cause error) error {
	ctx = context.WithoutCancel(ctx)
	var markErr error
	if err := uc.repo.UpdateStatus(ctx, upload.ID, domain.UploadStatusFailed, "analysis was not queued: "+cause.Error()); err != nil {
		markErr = fmt.Errorf("mark upload failed: %w", err)
	}
	return errors.Join(markErr, uc.removeFile(ctx, upload.StoragePath))
}

func (uc *IngestUploadUseCase) removeFile(ctx context.Context, key string) error {
	if err := uc.storage.Remove(context.WithoutCancel(ctx), key); err != nil {
		return fmt.Errorf("remove stored file: %w", err)
	}
	return nil
}

func (uc *IngestUploadUseCase) GetByID(ctx context.Context, id string) (*domain.Upload, error) {
	upload, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch upload by id: %w", err)
	}
	return upload, nil
}
