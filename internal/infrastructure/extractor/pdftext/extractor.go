package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

// Extractor reads stored PDF uploads and returns their plain text.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, upload *domain.Upload) (string, error) {
	reader, err := e.storage.Open(ctx, upload.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	return Parse(raw)
}

// Parse extracts the text of every page, separated by blank lines. A PDF with
// no text layer yields an empty string, not an error.
func Parse(raw []byte) (text string, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(raw, "\x00\t\r\n "), pdfMagic) {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "parse pdf", errors.New("missing %PDF header"))
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if recovered := recover(); recovered != nil {
			text = ""
			err = domain.WrapError(domain.ErrInvalidInput, "parse pdf", fmt.Errorf("malformed pdf: %v", recovered))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}
