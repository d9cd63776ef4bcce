package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

const certificateSystemPrompt = `You are a regulatory risk assistant. Given the extracted text of a supplier certificate, identify any potential issues.
Return a JSON object with:
- risk_level: Low, Medium, or High
- flags: a list of specific concerns
- summary: a one-paragraph plain-English explanation`

const (
	certificateMaxTokens   = 400
	certificateTemperature = 0.3
)

// PDFTextParser extracts text from raw PDF bytes.
type PDFTextParser func(raw []byte) (string, error)

// ScreenCertificateUseCase runs the quick supplier-certificate risk screen.
type ScreenCertificateUseCase struct {
	parsePDF PDFTextParser
	model    ports.ModelInvoker
	logger   *slog.Logger
}

func NewScreenCertificateUseCase(parsePDF PDFTextParser, model ports.ModelInvoker, logger *slog.Logger) *ScreenCertificateUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreenCertificateUseCase{parsePDF: parsePDF, model: model, logger: logger}
}

// Screen returns an error only for unusable input. Model failures are reported
// inside the screening's Error field.
func (uc *ScreenCertificateUseCase) Screen(ctx context.Context, filename string, body io.Reader) (domain.CertificateScreening, error) {
	if err := requirePDF(filename); err != nil {
		return domain.CertificateScreening{}, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return domain.CertificateScreening{}, fmt.Errorf("read certificate: %w", err)
	}
	text, err := uc.parsePDF(buf.Bytes())
	if err != nil {
		return domain.CertificateScreening{}, fmt.Errorf("extract text: %w", err)
	}

	temperature := certificateTemperature
	raw, err := uc.model.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.ChatMessage{
			{Role: "system", Content: certificateSystemPrompt},
			{Role: "user", Content: text},
		},
		MaxTokens:   certificateMaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		uc.logger.Error("certificate_screening_failed", "filename", filename, "error", err)
		return domain.CertificateScreening{Error: compliance.DescribeFailure(err)}, nil
	}

	return decodeScreening(raw), nil
}

// decodeScreening reads the model's JSON answer. Anything that does not
// decode becomes the summary.
func decodeScreening(raw string) domain.CertificateScreening {
	trimmed := strings.TrimSpace(raw)
	if object := compliance.ExtractJSONObject(trimmed); object != "" {
		var screening domain.CertificateScreening
		decoder := json.NewDecoder(strings.NewReader(object))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&screening); err == nil && screening.Error == "" {
			return screening
		}
	}
	return domain.CertificateScreening{Summary: trimmed}
}
