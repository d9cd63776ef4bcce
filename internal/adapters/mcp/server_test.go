package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

type analyzerFake struct {
	documentType string
	category     *string
	result       domain.AnalysisResult
}

func (f *analyzerFake) Analyze(_ context.Context, _ string, documentType string, category *string) domain.AnalysisResult {
	f.documentType = documentType
	f.category = category
	return f.result
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestListDirectivesForCategory(t *testing.T) {
	s := NewServer(nil, nil, quietLogger())

	result, err := s.listDirectives(context.Background(), callRequest(toolListDirectives, map[string]any{
		"product_category": "Toys",
	}))
	if err != nil {
		t.Fatalf("listDirectives() error = %v", err)
	}

	var got categoryDirectives
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.ProductCategory != "Toys" || len(got.ApplicableDirectives) == 0 {
		t.Fatalf("unexpected directives: %+v", got)
	}
	if got.ApplicableDirectives[0] != "2009/48/EC (Toy Safety)" {
		t.Fatalf("unexpected first directive %q", got.ApplicableDirectives[0])
	}
}

func TestListDirectivesWithoutCategoryListsAll(t *testing.T) {
	s := NewServer(nil, nil, quietLogger())

	result, err := s.listDirectives(context.Background(), callRequest(toolListDirectives, map[string]any{}))
	if err != nil {
		t.Fatalf("listDirectives() error = %v", err)
	}

	var got []categoryDirectives
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 categories, got %d", len(got))
	}
}

func TestGetChecklistRequiresDocumentType(t *testing.T) {
	s := NewServer(nil, nil, quietLogger())

	result, err := s.getChecklist(context.Background(), callRequest(toolGetChecklist, map[string]any{}))
	if err != nil {
		t.Fatalf("getChecklist() error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for missing document_type")
	}

	result, err = s.getChecklist(context.Background(), callRequest(toolGetChecklist, map[string]any{
		"document_type": "technical_file",
	}))
	if err != nil {
		t.Fatalf("getChecklist() error = %v", err)
	}
	var got struct {
		ChecklistItems []string `json:"checklist_items"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(got.ChecklistItems) != 9 {
		t.Fatalf("expected 9 checklist items, got %d", len(got.ChecklistItems))
	}
}

func TestAnalyzeTextTool(t *testing.T) {
	analyzer := &analyzerFake{result: domain.AnalysisResult{RiskLevel: domain.RiskHigh, ConfidenceScore: 0.85}}
	s := NewServer(nil, analyzer, quietLogger())

	result, err := s.analyzeText(context.Background(), callRequest(toolAnalyzeText, map[string]any{
		"document_text":    "Risk: HIGH",
		"product_category": "electronics",
	}))
	if err != nil {
		t.Fatalf("analyzeText() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if analyzer.documentType != "general" {
		t.Fatalf("expected general default, got %q", analyzer.documentType)
	}
	if analyzer.category == nil || *analyzer.category != "electronics" {
		t.Fatalf("unexpected category %v", analyzer.category)
	}
	if !strings.Contains(resultText(t, result), `"risk_level":"HIGH"`) {
		t.Fatalf("unexpected result: %s", resultText(t, result))
	}
}

func TestAnalyzeTextToolFlagsFailedAnalysis(t *testing.T) {
	analyzer := &analyzerFake{result: domain.NewFailedAnalysis("Analysis failed: the analysis timed out")}
	s := NewServer(nil, analyzer, quietLogger())

	result, err := s.analyzeText(context.Background(), callRequest(toolAnalyzeText, map[string]any{
		"document_text": "x",
	}))
	if err != nil {
		t.Fatalf("analyzeText() error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected failed analysis to be flagged as tool error")
	}
	if !strings.Contains(resultText(t, result), "timed out") {
		t.Fatalf("unexpected result: %s", resultText(t, result))
	}
}

func TestToolsListOmitsAnalyzerWhenNotConfigured(t *testing.T) {
	srv := NewServer(nil, nil, quietLogger()).MCPServer("test")

	response := srv.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, toolListDirectives) || !strings.Contains(body, toolGetChecklist) {
		t.Fatalf("expected catalog tools in %s", body)
	}
	if strings.Contains(body, toolAnalyzeText) {
		t.Fatalf("analysis tool must not be listed without an analyzer")
	}
}
