package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

// AnalyzeDocumentUseCase runs the CE analysis pipeline: template selection,
// prompt assembly, one model call, parsing and composition.
type AnalyzeDocumentUseCase struct {
	model    ports.ModelInvoker
	composer *compliance.Composer
	observer ports.AnalysisObserver
	logger   *slog.Logger
}

func NewAnalyzeDocumentUseCase(
	model ports.ModelInvoker,
	catalog *compliance.Catalog,
	observer ports.AnalysisObserver,
	logger *slog.Logger,
) *AnalyzeDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeDocumentUseCase{
		model:    model,
		composer: compliance.NewComposer(compliance.NewParser(catalog), logger),
		observer: observer,
		logger:   logger,
	}
}

func (uc *AnalyzeDocumentUseCase) Analyze(
	ctx context.Context,
	documentText, documentType string,
	productCategory *string,
) (result domain.AnalysisResult) {
	docType := domain.ParseDocumentType(documentType)
	category := domain.ParseProductCategory(productCategory)

	defer func() {
		if recovered := recover(); recovered != nil {
			uc.logger.Error("analysis_failed",
				"document_type", docType,
				"stage", "prompt",
				"error", fmt.Sprint(recovered),
			)
			result = domain.NewFailedAnalysis("Analysis failed: an unexpected error occurred")
		}
		if uc.observer != nil {
			uc.observer.ObserveAnalysis(result)
		}
	}()

	prompt := uc.buildPrompt(documentText, docType)
	raw, err := uc.invoke(ctx, prompt)
	result = uc.composer.Compose(docType, category, raw, err)
	if !result.Failed() {
		uc.logger.Info("analysis_completed",
			"document_type", docType,
			"risk_level", result.RiskLevel,
			"placeholder_fields", len(result.PlaceholderFields),
		)
	}
	return result
}

func (uc *AnalyzeDocumentUseCase) buildPrompt(documentText string, docType domain.DocumentType) string {
	checklist := compliance.SelectTemplate(docType)
	return compliance.Assemble(documentText, docType, checklist)
}

func (uc *AnalyzeDocumentUseCase) invoke(ctx context.Context, prompt string) (string, error) {
	raw, err := uc.model.Complete(ctx, domain.CompletionRequest{
		Messages: compliance.BuildAnalysisMessages(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("invoke model: %w", err)
	}
	return raw, nil
}
