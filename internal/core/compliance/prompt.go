package compliance

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

//go:embed prompt.tmpl
var analysisPromptRaw string

// analysisPrompt is parsed once at package init and reused for every request.
var analysisPrompt = template.Must(template.New("analysis_prompt").Parse(analysisPromptRaw))

// SystemPrompt frames every analysis conversation with the model.
const SystemPrompt = `You are a regulatory compliance assistant specialised in EU CE marking.
Write your assessment in plain English and state the overall risk level explicitly.
Optionally finish with one JSON object using the keys summary, compliance_gaps
(objects with severity, issue, requirement, solution), strengths, next_steps,
estimated_cost and estimated_timeline.`

type promptData struct {
	DocumentLabel string
	DocumentText  string
	Checklist     string
}

// Assemble builds the analysis prompt: preamble, verbatim document text, the
// fixed requirements block and the checklist body.
func Assemble(documentText string, docType domain.DocumentType, checklist string) string {
	var b strings.Builder
	execute(&b, "analysis_prompt", promptData{
		DocumentLabel: docType.Label(),
		DocumentText:  documentText,
		Checklist:     checklist,
	})
	return b.String()
}

// Preamble returns only the role/context lines of the prompt.
func Preamble(docType domain.DocumentType) string {
	var b strings.Builder
	execute(&b, "preamble", promptData{DocumentLabel: docType.Label()})
	return b.String()
}

// BuildAnalysisMessages is the role-tagged conversation sent to the model.
func BuildAnalysisMessages(prompt string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: prompt},
	}
}

func execute(b *strings.Builder, name string, data promptData) {
	// The template is static and the data only holds strings, so failure here
	// is a programming error.
	if err := analysisPrompt.ExecuteTemplate(b, name, data); err != nil {
		panic(fmt.Sprintf("execute %s template: %v", name, err))
	}
}
