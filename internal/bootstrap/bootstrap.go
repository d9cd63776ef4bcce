package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
	"github.com/kirillkom/compliance-decoder/internal/core/usecase"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/llm/openai"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/queue/nats"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/resilience"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/compliance-decoder/internal/observability/metrics"
)

// Core is the part of the system that needs neither Postgres nor NATS: the
// catalog, the model client and the analysis use cases.
type Core struct {
	Catalog      *compliance.Catalog
	Analyzer     *usecase.AnalyzeDocumentUseCase
	Certificates *usecase.ScreenCertificateUseCase
	Reports      *xlsx.Renderer
}

// NewCore builds the analysis pipeline. analysisMetrics may be nil.
func NewCore(cfg config.Config, analysisMetrics *metrics.AnalysisMetrics, logger *slog.Logger) (*Core, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog, err := compliance.LoadCatalogFile(cfg.DirectiveCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load directive catalog: %w", err)
	}

	clientOpts := []openai.Option{openai.WithLogger(logger)}
	var observer ports.AnalysisObserver
	if analysisMetrics != nil {
		observer = analysisMetrics
		clientOpts = append(clientOpts,
			openai.WithObserver(analysisMetrics),
			openai.WithBreakerListener(analysisMetrics.ObserveBreakerState),
		)
	}
	model := openai.New(modelConfig(cfg), clientOpts...)
	if cfg.GPTAPIKey == "" {
		logger.Warn("model_api_key_missing", "hint", "set GPT_API_KEY; every analysis will fail with an authentication error")
	}

	return &Core{
		Catalog:      catalog,
		Analyzer:     usecase.NewAnalyzeDocumentUseCase(model, catalog, observer, logger),
		Certificates: usecase.NewScreenCertificateUseCase(pdftext.Parse, model, logger),
		Reports:      xlsx.NewRenderer(),
	}, nil
}

func modelConfig(cfg config.Config) openai.Config {
	policy := resilience.DefaultConfig()
	if cfg.LLMTimeoutSeconds > 0 {
		policy.AttemptTimeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	}
	if cfg.LLMRetryMaxAttempts > 0 {
		policy.RetryMaxAttempts = cfg.LLMRetryMaxAttempts
	}
	policy.BreakerEnabled = cfg.LLMBreakerEnabled

	return openai.Config{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.GPTAPIKey,
		Model:             cfg.LLMModel,
		Temperature:       cfg.LLMTemperature,
		MaxTokens:         cfg.LLMMaxTokens,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
		Resilience:        policy,
	}
}

type App struct {
	Config config.Config
	*Core

	Queue    ports.AnalysisQueue
	Repo     ports.UploadRepository
	UploadUC ports.UploadAnalyzer
	IngestUC *usecase.IngestUploadUseCase

	extractor ports.TextExtractor
	closeFn   func()
}

// New wires the full service graph: Postgres registry, local storage, NATS
// and the use cases on top of Core.
func New(ctx context.Context, cfg config.Config, analysisMetrics *metrics.AnalysisMetrics, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	core, err := NewCore(cfg, analysisMetrics, logger)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewUploadRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSAnalyzeSubject, cfg.NATSResultSubject, nats.Options{
		ProcessTimeout:     time.Duration(cfg.WorkerProcessTimeoutSeconds) * time.Second,
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), resilience.WithLogger(logger)),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	extractor := pdftext.NewExtractor(storage)

	return &App{
		Config: cfg,
		Core:   core,
		Queue:  queue,
		Repo:   repo,

		UploadUC: usecase.NewUploadAnalysisUseCase(storage, extractor, core.Analyzer, logger),
		IngestUC: usecase.NewIngestUploadUseCase(repo, storage, queue),

		extractor: extractor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// Processor builds the worker-side use case for queued uploads.
func (a *App) Processor(opts ...usecase.ProcessOption) ports.UploadProcessor {
	return usecase.NewProcessUploadUseCase(a.Repo, a.extractor, a.Analyzer, a.Queue, opts...)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
