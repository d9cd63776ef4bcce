package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

type analyzerFake struct {
	text         string
	documentType string
	category     *string
	result       domain.AnalysisResult
}

func (f *analyzerFake) Analyze(_ context.Context, text, documentType string, category *string) domain.AnalysisResult {
	f.text = text
	f.documentType = documentType
	f.category = category
	return f.result
}

func testEnv(analyzer *analyzerFake) (cliEnv, *[]domain.UploadAnalysis) {
	var rendered []domain.UploadAnalysis
	return cliEnv{
		loadConfig: func(string) (config.Config, error) { return config.Config{}, nil },
		newAnalyzer: func(config.Config, *slog.Logger) (ports.ComplianceAnalyzer, error) {
			return analyzer, nil
		},
		parsePDF: func(raw []byte) (string, error) {
			return "parsed:" + string(raw), nil
		},
		renderReport: func(report domain.UploadAnalysis) ([]byte, error) {
			rendered = append(rendered, report)
			return []byte("xlsx"), nil
		},
	}, &rendered
}

func execute(t *testing.T, env cliEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(env)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("body"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestAnalyzeCommandPrintsJSON(t *testing.T) {
	analyzer := &analyzerFake{result: domain.AnalysisResult{RiskLevel: domain.RiskHigh, ConfidenceScore: 0.85}}
	env, _ := testEnv(analyzer)

	out, err := execute(t, env, "analyze", writeTempPDF(t), "--type", "declaration_of_conformity", "--category", "electronics")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if analyzer.text != "parsed:body" || analyzer.documentType != "declaration_of_conformity" {
		t.Fatalf("unexpected analyzer input: %+v", analyzer)
	}
	if analyzer.category == nil || *analyzer.category != "electronics" {
		t.Fatalf("unexpected category %v", analyzer.category)
	}

	var got domain.UploadAnalysis
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Filename != "doc.pdf" || got.FileID == "" || got.Analysis.RiskLevel != domain.RiskHigh {
		t.Fatalf("unexpected output: %+v", got)
	}
}

func TestAnalyzeCommandWritesWorkbook(t *testing.T) {
	env, rendered := testEnv(&analyzerFake{result: domain.AnalysisResult{RiskLevel: domain.RiskLow}})
	target := filepath.Join(t.TempDir(), "report.xlsx")

	if _, err := execute(t, env, "analyze", writeTempPDF(t), "--xlsx", target); err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(raw) != "xlsx" || len(*rendered) != 1 {
		t.Fatalf("expected one rendered workbook, got %d", len(*rendered))
	}
	if (*rendered)[0].DocumentType != domain.DocumentGeneral {
		t.Fatalf("expected general document type, got %q", (*rendered)[0].DocumentType)
	}
}

func TestAnalyzeCommandFailsOnFailedAnalysis(t *testing.T) {
	env, _ := testEnv(&analyzerFake{result: domain.NewFailedAnalysis("Analysis failed: the analysis timed out")})

	out, err := execute(t, env, "analyze", writeTempPDF(t))
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !strings.Contains(out, `"risk_level": "UNKNOWN"`) {
		t.Fatalf("expected error variant on stdout, got %s", out)
	}
}

func TestAnalyzeCommandRejectsNonPDF(t *testing.T) {
	env, _ := testEnv(&analyzerFake{})

	if _, err := execute(t, env, "analyze", "notes.txt"); err == nil {
		t.Fatalf("expected error for non-PDF input")
	}
}

func TestAnalyzeCommandPropagatesParseError(t *testing.T) {
	env, _ := testEnv(&analyzerFake{})
	env.parsePDF = func([]byte) (string, error) { return "", errors.New("not a pdf") }

	_, err := execute(t, env, "analyze", writeTempPDF(t))
	if err == nil || !strings.Contains(err.Error(), "extract text") {
		t.Fatalf("expected extract error, got %v", err)
	}
}

func TestDirectivesCommand(t *testing.T) {
	env, _ := testEnv(&analyzerFake{})

	out, err := execute(t, env, "directives", "Electronics")
	if err != nil {
		t.Fatalf("directives error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[0] != "2014/35/EU (LVD)" {
		t.Fatalf("unexpected directives output: %q", out)
	}

	out, err = execute(t, env, "directives")
	if err != nil {
		t.Fatalf("directives error = %v", err)
	}
	if !strings.Contains(out, "cosmetics") || !strings.HasPrefix(out, "CATEGORY") {
		t.Fatalf("unexpected table output: %q", out)
	}

	if _, err := execute(t, env, "directives", "spaceships"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestChecklistCommand(t *testing.T) {
	env, _ := testEnv(&analyzerFake{})

	out, err := execute(t, env, "checklist", "technical_file")
	if err != nil {
		t.Fatalf("checklist error = %v", err)
	}
	if strings.Count(out, "[ ] ") != 9 {
		t.Fatalf("expected 9 checklist items, got %q", out)
	}

	if _, err := execute(t, env, "checklist", "brochure"); err == nil {
		t.Fatalf("expected error for document type without checklist")
	}
}

func TestDocumentTypesCommand(t *testing.T) {
	env, _ := testEnv(&analyzerFake{})

	out, err := execute(t, env, "document-types")
	if err != nil {
		t.Fatalf("document-types error = %v", err)
	}
	for _, want := range []string{"technical_file", "Declaration of Conformity", "user_manual"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}
