package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

// ResponseParser turns raw model text into a result.
type ResponseParser interface {
	Parse(raw string, docType domain.DocumentType, category *domain.ProductCategory) domain.AnalysisResult
}

// Composer is the single recovery boundary of the pipeline: whatever happens
// upstream, it hands back a well-formed AnalysisResult.
type Composer struct {
	parser ResponseParser
	logger *slog.Logger
}

func NewComposer(parser ResponseParser, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{parser: parser, logger: logger}
}

func (c *Composer) Compose(
	docType domain.DocumentType,
	category *domain.ProductCategory,
	raw string,
	invokeErr error,
) (result domain.AnalysisResult) {
	if invokeErr != nil {
		c.logger.Error("analysis_failed",
			"document_type", docType,
			"stage", "model_invocation",
			"error", invokeErr,
		)
		return domain.NewFailedAnalysis("Analysis failed: " + DescribeFailure(invokeErr))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("analysis_failed",
				"document_type", docType,
				"stage", "parse",
				"error", fmt.Sprint(recovered),
			)
			result = domain.NewFailedAnalysis("Analysis failed: the model response could not be interpreted")
		}
	}()

	return c.parser.Parse(raw, docType, category)
}

// DescribeFailure turns a pipeline error into a message safe to show callers.
func DescribeFailure(err error) string {
	var modelErr *domain.ModelInvocationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the analysis timed out"
	case errors.Is(err, context.Canceled):
		return "the analysis was cancelled"
	case errors.As(err, &modelErr):
		return modelErr.UserMessage()
	case domain.IsKind(err, domain.ErrTemporary):
		return "the analysis service is temporarily unavailable"
	default:
		return "an unexpected error occurred"
	}
}
