package ports

import (
	"context"
	"io"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

// ModelInvoker sends one chat completion to the external language model and
// returns the assistant text.
type ModelInvoker interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// UploadRepository persists upload registry records. Analysis results are
// never stored.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) error
	GetByID(ctx context.Context, id string) (*domain.Upload, error)
	UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMessage string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// AnalysisQueue carries analysis jobs to the worker and results back out.
type AnalysisQueue interface {
	PublishAnalysisRequested(ctx context.Context, uploadID string) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, string) error) error
	PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisEvent) error
}

// TextExtractor extracts plain text from a stored upload.
type TextExtractor interface {
	Extract(ctx context.Context, upload *domain.Upload) (string, error)
}

// AnalysisObserver records analysis outcomes, typically as metrics.
type AnalysisObserver interface {
	ObserveAnalysis(result domain.AnalysisResult)
}
