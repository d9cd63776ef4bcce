package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

type modelFake struct {
	mu       sync.Mutex
	response string
	err      error
	requests []domain.CompletionRequest
}

func (f *modelFake) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type storageFake struct {
	saved   map[string]string
	removed []string
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string]string)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	f.saved[key] = string(raw)
	return int64(len(raw)), nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.saved[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	delete(f.saved, key)
	f.removed = append(f.removed, key)
	return nil
}

type extractorFake struct {
	text string
	err  error
	seen *domain.Upload
}

func (f *extractorFake) Extract(_ context.Context, upload *domain.Upload) (string, error) {
	f.seen = upload
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type analyzerCall struct {
	text     string
	docType  string
	category *string
}

type analyzerFake struct {
	result domain.AnalysisResult
	calls  []analyzerCall
}

func (f *analyzerFake) Analyze(_ context.Context, text, docType string, category *string) domain.AnalysisResult {
	f.calls = append(f.calls, analyzerCall{text: text, docType: docType, category: category})
	return f.result
}

type statusCall struct {
	status domain.UploadStatus
	errMsg string
}

type repoFake struct {
	upload        *domain.Upload
	created       *domain.Upload
	createErr     error
	getErr        error
	failStatusErr error
	statusCalls   []statusCall
}

func (f *repoFake) Create(_ context.Context, upload *domain.Upload) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *upload
	f.created = &copied
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Upload, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copied := *f.upload
	return &copied, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.UploadStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.UploadStatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	return nil
}

type queueFake struct {
	requested  string
	publishErr error
	events     []domain.AnalysisEvent
}

func (f *queueFake) PublishAnalysisRequested(_ context.Context, uploadID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.requested = uploadID
	return nil
}

func (f *queueFake) SubscribeAnalysisRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func (f *queueFake) PublishAnalysisCompleted(_ context.Context, event domain.AnalysisEvent) error {
	f.events = append(f.events, event)
	return nil
}

type observerFake struct {
	results []domain.AnalysisResult
}

func (f *observerFake) ObserveAnalysis(result domain.AnalysisResult) {
	f.results = append(f.results, result)
}

func strPtr(value string) *string {
	return &value
}
