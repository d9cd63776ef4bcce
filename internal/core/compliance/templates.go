package compliance

import (
	"embed"
	"fmt"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

//go:embed templates/*.md
var templateFS embed.FS

var (
	genericTemplate = mustReadTemplate(domain.DocumentGeneral)
	typedTemplates  = loadTypedTemplates()
)

func loadTypedTemplates() map[domain.DocumentType]string {
	out := make(map[domain.DocumentType]string, len(domain.DocumentTypes))
	for _, docType := range domain.DocumentTypes {
		out[docType] = mustReadTemplate(docType)
	}
	return out
}

func mustReadTemplate(docType domain.DocumentType) string {
	raw, err := templateFS.ReadFile("templates/" + string(docType) + ".md")
	if err != nil {
		panic(fmt.Sprintf("missing analysis template for %s: %v", docType, err))
	}
	return string(raw)
}

// SelectTemplate returns the checklist body for a document type. Unknown types
// and DocumentGeneral get the generic review template.
func SelectTemplate(docType domain.DocumentType) string {
	if body, ok := typedTemplates[docType]; ok {
		return body
	}
	return genericTemplate
}

// GenericTemplate is the fallback checklist body.
func GenericTemplate() string {
	return genericTemplate
}
