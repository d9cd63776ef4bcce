package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

// ProcessUploadUseCase is the worker side of asynchronous analysis. The
// result is published as an event and never written to the registry.
type ProcessUploadUseCase struct {
	repo      ports.UploadRepository
	extractor ports.TextExtractor
	analyzer  ports.ComplianceAnalyzer
	queue     ports.AnalysisQueue

	observeLag func(time.Duration)
	now        func() time.Time
}

type ProcessOption func(*ProcessUploadUseCase)

// WithQueueLagObserver reports the time between upload registration and the
// start of its analysis.
func WithQueueLagObserver(observe func(time.Duration)) ProcessOption {
	return func(uc *ProcessUploadUseCase) {
		uc.observeLag = observe
	}
}

func NewProcessUploadUseCase(
	repo ports.UploadRepository,
	extractor ports.TextExtractor,
	analyzer ports.ComplianceAnalyzer,
	queue ports.AnalysisQueue,
	opts ...ProcessOption,
) *ProcessUploadUseCase {
	uc := &ProcessUploadUseCase{
		repo:      repo,
		extractor: extractor,
		analyzer:  analyzer,
		queue:     queue,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ProcessUploadUseCase) ProcessByID(ctx context.Context, uploadID string) error {
	if err := uc.markStatus(ctx, uploadID, domain.UploadStatusAnalyzing, ""); err != nil {
		return fmt.Errorf("set status=analyzing: %w", err)
	}

	upload, result, err := uc.analyzePipeline(ctx, uploadID)
	if err != nil {
		if failErr := uc.markFailed(ctx, uploadID, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	status := domain.UploadStatusAnalyzed
	errMessage := ""
	if result.Failed() {
		status = domain.UploadStatusFailed
		errMessage = result.Error
	}
	if err := uc.markStatus(ctx, uploadID, status, errMessage); err != nil {
		return fmt.Errorf("set status=%s: %w", status, err)
	}

	if err := uc.publish(ctx, upload, status, result); err != nil {
		return err
	}
	return nil
}

func (uc *ProcessUploadUseCase) analyzePipeline(ctx context.Context, uploadID string) (*domain.Upload, domain.AnalysisResult, error) {
	upload, err := uc.loadUpload(ctx, uploadID)
	if err != nil {
		return nil, domain.AnalysisResult{}, err
	}
	if uc.observeLag != nil && !upload.CreatedAt.IsZero() {
		uc.observeLag(uc.now().Sub(upload.CreatedAt))
	}

	text, err := uc.extractText(ctx, upload)
	if err != nil {
		return nil, domain.AnalysisResult{}, err
	}

	var category *string
	if upload.ProductCategory != nil {
		value := string(*upload.ProductCategory)
		category = &value
	}
	result := uc.analyzer.Analyze(ctx, text, string(upload.DocumentType), category)
	return upload, result, nil
}

func (uc *ProcessUploadUseCase) loadUpload(ctx context.Context, uploadID string) (*domain.Upload, error) {
	upload, err := uc.repo.GetByID(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("fetch upload by id: %w", err)
	}
	return upload, nil
}

func (uc *ProcessUploadUseCase) extractText(ctx context.Context, upload *domain.Upload) (string, error) {
	text, err := uc.extractor.Extract(ctx, upload)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

func (uc *ProcessUploadUseCase) publish(ctx context.Context, upload *domain.Upload, status domain.UploadStatus, result domain.AnalysisResult) error {
	event := domain.AnalysisEvent{
		UploadID: upload.ID,
		Filename: upload.Filename,
		Status:   status,
		Analysis: result,
	}
	if err := uc.queue.PublishAnalysisCompleted(ctx, event); err != nil {
		return fmt.Errorf("publish analysis result: %w", err)
	}
	return nil
}

func (uc *ProcessUploadUseCase) markStatus(ctx context.Context, uploadID string, status domain.UploadStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, uploadID, status, errMessage)
}

func (uc *ProcessUploadUseCase) markFailed(ctx context.Context, uploadID, message string) error {
	return uc.markStatus(ctx, uploadID, domain.UploadStatusFailed, message)
}
