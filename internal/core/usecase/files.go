package usecase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.pdf"
	}
	return base
}

// requirePDF accepts only files with a .pdf extension.
func requirePDF(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate upload", fmt.Errorf("no file selected"))
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return domain.WrapError(domain.ErrUnsupportedMedia, "validate upload", fmt.Errorf("%q is not a pdf", filepath.Base(filename)))
	}
	return nil
}

func storageKey(id string) string {
	return id + ".pdf"
}
