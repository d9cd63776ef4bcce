package compliance

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

// PlaceholderConfidence is reported for every successful analysis. It is a
// fixed value, not a computed score.
const PlaceholderConfidence = 0.85

// Names used in AnalysisResult.PlaceholderFields.
const (
	FieldComplianceGaps    = "compliance_gaps"
	FieldStrengths         = "strengths"
	FieldNextSteps         = "next_steps"
	FieldEstimatedCost     = "estimated_cost"
	FieldEstimatedTimeline = "estimated_timeline"
	FieldSummary           = "summary"
	FieldConfidenceScore   = "confidence_score"
)

// Placeholder values returned when the model output carries no structured
// data. They do not describe the analysed document.
var (
	placeholderGaps = []domain.ComplianceGap{{
		Severity:    string(domain.RiskHigh),
		Issue:       "Missing notified body certificate",
		Requirement: "Conformity assessment procedure",
		Solution:    "Obtain testing from accredited notified body",
	}}
	placeholderStrengths = []string{
		"Complete manufacturer identification",
		"Proper document structure maintained",
	}
	placeholderNextSteps = []string{
		"Submit product for required testing",
		"Update technical documentation",
		"Prepare Declaration of Conformity",
	}
)

const (
	placeholderCost     = "$2,500 - $4,000"
	placeholderTimeline = "4-6 weeks"
	placeholderSummary  = "Document shows moderate compliance gaps requiring attention to testing and certification requirements."
)

// riskPriority is checked in order; the first token found wins.
var riskPriority = []domain.RiskLevel{domain.RiskCritical, domain.RiskHigh, domain.RiskModerate}

// ExtractRiskLevel scans the text case-insensitively for CRITICAL, HIGH and
// MODERATE in that order and defaults to LOW.
func ExtractRiskLevel(text string) domain.RiskLevel {
	upper := strings.ToUpper(text)
	for _, level := range riskPriority {
		if strings.Contains(upper, string(level)) {
			return level
		}
	}
	return domain.RiskLow
}

// ExtractDirectives ignores the text: a known category gets its catalog list,
// anything else gets the fallback pair.
func ExtractDirectives(catalog *Catalog, _ string, category *domain.ProductCategory) []domain.DirectiveID {
	if catalog.HasCategory(category) {
		return catalog.DirectivesFor(category)
	}
	return catalog.FallbackDirectives()
}

func ExtractComplianceGaps(string) []domain.ComplianceGap {
	return slices.Clone(placeholderGaps)
}

func ExtractStrengths(string) []string {
	return slices.Clone(placeholderStrengths)
}

func ExtractNextSteps(string) []string {
	return slices.Clone(placeholderNextSteps)
}

func EstimateCost(string) string {
	return placeholderCost
}

func EstimateTimeline(string) string {
	return placeholderTimeline
}

func ExtractSummary(string) string {
	return placeholderSummary
}

// structuredAnalysis is the optional JSON object a model may append.
type structuredAnalysis struct {
	Summary           string                 `json:"summary"`
	ComplianceGaps    []domain.ComplianceGap `json:"compliance_gaps"`
	Strengths         []string               `json:"strengths"`
	NextSteps         []string               `json:"next_steps"`
	EstimatedCost     string                 `json:"estimated_cost"`
	EstimatedTimeline string                 `json:"estimated_timeline"`
}

func decodeStructured(raw string) (structuredAnalysis, bool) {
	object := ExtractJSONObject(raw)
	if object == "" {
		return structuredAnalysis{}, false
	}
	var out structuredAnalysis
	if err := json.Unmarshal([]byte(object), &out); err != nil {
		return structuredAnalysis{}, false
	}
	return out, true
}

type Parser struct {
	catalog *Catalog
}

func NewParser(catalog *Catalog) *Parser {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Parser{catalog: catalog}
}

// Parse turns free model text into an AnalysisResult. It never fails: every
// extractor has a default.
func (p *Parser) Parse(raw string, docType domain.DocumentType, category *domain.ProductCategory) domain.AnalysisResult {
	result := domain.AnalysisResult{
		DocumentType:         docType,
		ProductCategory:      category,
		RiskLevel:            ExtractRiskLevel(raw),
		ConfidenceScore:      PlaceholderConfidence,
		ApplicableDirectives: ExtractDirectives(p.catalog, raw, category),
		ComplianceGaps:       ExtractComplianceGaps(raw),
		Strengths:            ExtractStrengths(raw),
		NextSteps:            ExtractNextSteps(raw),
		EstimatedCost:        EstimateCost(raw),
		EstimatedTimeline:    EstimateTimeline(raw),
		Summary:              ExtractSummary(raw),
		RawAnalysis:          raw,
	}
	placeholders := []string{
		FieldComplianceGaps,
		FieldStrengths,
		FieldNextSteps,
		FieldEstimatedCost,
		FieldEstimatedTimeline,
		FieldSummary,
		FieldConfidenceScore,
	}

	if structured, ok := decodeStructured(raw); ok {
		placeholders = applyStructured(&result, structured, placeholders)
	}
	result.PlaceholderFields = placeholders
	return result
}

func applyStructured(result *domain.AnalysisResult, structured structuredAnalysis, placeholders []string) []string {
	if gaps := cleanGaps(structured.ComplianceGaps); len(gaps) > 0 {
		result.ComplianceGaps = gaps
		placeholders = without(placeholders, FieldComplianceGaps)
	}
	if strengths := cleanList(structured.Strengths); len(strengths) > 0 {
		result.Strengths = strengths
		placeholders = without(placeholders, FieldStrengths)
	}
	if steps := cleanList(structured.NextSteps); len(steps) > 0 {
		result.NextSteps = steps
		placeholders = without(placeholders, FieldNextSteps)
	}
	if cost := strings.TrimSpace(structured.EstimatedCost); cost != "" {
		result.EstimatedCost = cost
		placeholders = without(placeholders, FieldEstimatedCost)
	}
	if timeline := strings.TrimSpace(structured.EstimatedTimeline); timeline != "" {
		result.EstimatedTimeline = timeline
		placeholders = without(placeholders, FieldEstimatedTimeline)
	}
	if summary := strings.TrimSpace(structured.Summary); summary != "" {
		result.Summary = summary
		placeholders = without(placeholders, FieldSummary)
	}
	return placeholders
}

func cleanGaps(gaps []domain.ComplianceGap) []domain.ComplianceGap {
	out := make([]domain.ComplianceGap, 0, len(gaps))
	for _, gap := range gaps {
		gap.Issue = strings.TrimSpace(gap.Issue)
		if gap.Issue == "" {
			continue
		}
		gap.Severity = strings.ToUpper(strings.TrimSpace(gap.Severity))
		gap.Requirement = strings.TrimSpace(gap.Requirement)
		gap.Solution = strings.TrimSpace(gap.Solution)
		out = append(out, gap)
	}
	return out
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func without(fields []string, name string) []string {
	return slices.DeleteFunc(fields, func(field string) bool { return field == name })
}
