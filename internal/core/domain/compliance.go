package domain

import (
	"encoding/json"
	"strings"
)

type DocumentType string

const (
	DocumentTechnicalFile           DocumentType = "technical_file"
	DocumentDeclarationOfConformity DocumentType = "declaration_of_conformity"
	DocumentTestReports             DocumentType = "test_reports"
	DocumentRiskAssessment          DocumentType = "risk_assessment"
	DocumentUserManual              DocumentType = "user_manual"
	DocumentGeneral                 DocumentType = "general"
)

// DocumentTypes lists the analyzable document types in display order.
// DocumentGeneral is the fallback and is not part of the list.
var DocumentTypes = []DocumentType{
	DocumentTechnicalFile,
	DocumentDeclarationOfConformity,
	DocumentTestReports,
	DocumentRiskAssessment,
	DocumentUserManual,
}

// ParseDocumentType never fails: unknown values map to DocumentGeneral.
func ParseDocumentType(raw string) DocumentType {
	candidate := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range DocumentTypes {
		if candidate == known {
			return known
		}
	}
	return DocumentGeneral
}

// Label returns the human-readable form used in prompts, e.g. "technical file".
func (t DocumentType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

type ProductCategory string

const (
	CategoryElectronics    ProductCategory = "electronics"
	CategoryMachinery      ProductCategory = "machinery"
	CategoryToys           ProductCategory = "toys"
	CategoryMedicalDevices ProductCategory = "medical_devices"
	CategoryRadioEquipment ProductCategory = "radio_equipment"
	CategoryPPE            ProductCategory = "ppe"
	CategoryCosmetics      ProductCategory = "cosmetics"
)

// ParseProductCategory normalizes an optional category. Blank input means absent.
// Values outside the known set are kept as given so the caller can report them;
// the directive catalog treats them as unknown.
func ParseProductCategory(raw *string) *ProductCategory {
	if raw == nil {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(*raw))
	if value == "" {
		return nil
	}
	category := ProductCategory(value)
	return &category
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
	RiskUnknown  RiskLevel = "UNKNOWN"
)

type DirectiveID = string

type ComplianceGap struct {
	Severity    string `json:"severity"`
	Issue       string `json:"issue"`
	Requirement string `json:"requirement"`
	Solution    string `json:"solution"`
}

// AnalysisResult is either a populated assessment or, when Error is set, the
// error variant carrying only error, risk_level and confidence_score.
type AnalysisResult struct {
	DocumentType         DocumentType     `json:"document_type"`
	ProductCategory      *ProductCategory `json:"product_category"`
	RiskLevel            RiskLevel        `json:"risk_level"`
	ConfidenceScore      float64          `json:"confidence_score"`
	ApplicableDirectives []DirectiveID    `json:"applicable_directives"`
	ComplianceGaps       []ComplianceGap  `json:"compliance_gaps"`
	Strengths            []string         `json:"strengths"`
	NextSteps            []string         `json:"next_steps"`
	EstimatedCost        string           `json:"estimated_cost"`
	EstimatedTimeline    string           `json:"estimated_timeline"`
	Summary              string           `json:"summary"`

	// PlaceholderFields names the fields filled from fixed placeholder values
	// rather than from the model output.
	PlaceholderFields []string `json:"placeholder_fields,omitempty"`
	RawAnalysis       string   `json:"raw_analysis,omitempty"`

	Error string `json:"error,omitempty"`
}

func (r AnalysisResult) Failed() bool {
	return r.Error != ""
}

// NewFailedAnalysis builds the error variant.
func NewFailedAnalysis(message string) AnalysisResult {
	return AnalysisResult{
		Error:           message,
		RiskLevel:       RiskUnknown,
		ConfidenceScore: 0.0,
	}
}

type failedAnalysisJSON struct {
	Error           string    `json:"error"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ConfidenceScore float64   `json:"confidence_score"`
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(failedAnalysisJSON{
			Error:           r.Error,
			RiskLevel:       r.RiskLevel,
			ConfidenceScore: r.ConfidenceScore,
		})
	}
	type plain AnalysisResult
	return json.Marshal(plain(r))
}

// CertificateScreening is the quick supplier-certificate check. When the model
// answer is not structured, only Summary is populated.
type CertificateScreening struct {
	RiskLevel string   `json:"risk_level,omitempty"`
	Flags     []string `json:"flags,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one call to the external model. Zero MaxTokens and a nil
// Temperature mean the adapter defaults.
type CompletionRequest struct {
	Messages    []ChatMessage
	MaxTokens   int
	Temperature *float64
}

// AnalysisEvent is published after an asynchronous analysis finishes.
type AnalysisEvent struct {
	UploadID string         `json:"upload_id"`
	Filename string         `json:"filename"`
	Status   UploadStatus   `json:"status"`
	Analysis AnalysisResult `json:"analysis"`
}

// UploadAnalysis is the response of the synchronous upload-and-analyze flow.
type UploadAnalysis struct {
	FileID          string           `json:"file_id"`
	Filename        string           `json:"filename"`
	DocumentType    DocumentType     `json:"document_type"`
	ProductCategory *ProductCategory `json:"product_category"`
	Analysis        AnalysisResult   `json:"analysis"`
}
