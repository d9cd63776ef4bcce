package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
)

const (
	sheetSummary    = "Summary"
	sheetDirectives = "Directives"
	sheetGaps       = "Gaps"
	sheetActions    = "Actions"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Renderer writes an analysis as an Excel workbook with one sheet per section.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(report domain.UploadAnalysis) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	w := &workbook{file: f, header: header}
	w.summary(report)
	if !report.Analysis.Failed() {
		w.directives(report.Analysis)
		w.gaps(report.Analysis)
		w.actions(report.Analysis)
	}
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// workbook keeps the first error so the sheet builders read linearly.
type workbook struct {
	file   *excelize.File
	header int
	err    error
}

func (w *workbook) summary(report domain.UploadAnalysis) {
	analysis := report.Analysis
	category := ""
	if report.ProductCategory != nil {
		category = string(*report.ProductCategory)
	}

	w.row(sheetSummary, 1, []any{"Field", "Value"})
	w.style(sheetSummary, "A1", "B1")
	rows := [][]any{
		{"File", report.Filename},
		{"File ID", report.FileID},
		{"Document type", string(report.DocumentType)},
		{"Product category", category},
		{"Risk level", string(analysis.RiskLevel)},
		{"Confidence score", analysis.ConfidenceScore},
	}
	if analysis.Failed() {
		rows = append(rows, []any{"Error", analysis.Error})
	} else {
		rows = append(rows,
			[]any{"Summary", analysis.Summary},
			[]any{"Estimated cost", analysis.EstimatedCost},
			[]any{"Estimated timeline", analysis.EstimatedTimeline},
			[]any{"Placeholder fields", strings.Join(analysis.PlaceholderFields, ", ")},
		)
	}
	for i, row := range rows {
		w.row(sheetSummary, i+2, row)
	}
	w.width(sheetSummary, "A", "A", 22)
	w.width(sheetSummary, "B", "B", 90)
}

func (w *workbook) directives(analysis domain.AnalysisResult) {
	w.sheet(sheetDirectives)
	w.row(sheetDirectives, 1, []any{"#", "Directive"})
	w.style(sheetDirectives, "A1", "B1")
	for i, directive := range analysis.ApplicableDirectives {
		w.row(sheetDirectives, i+2, []any{i + 1, directive})
	}
	w.width(sheetDirectives, "B", "B", 40)
}

func (w *workbook) gaps(analysis domain.AnalysisResult) {
	w.sheet(sheetGaps)
	w.row(sheetGaps, 1, []any{"Severity", "Issue", "Requirement", "Solution"})
	w.style(sheetGaps, "A1", "D1")
	for i, gap := range analysis.ComplianceGaps {
		w.row(sheetGaps, i+2, []any{gap.Severity, gap.Issue, gap.Requirement, gap.Solution})
	}
	w.width(sheetGaps, "B", "D", 45)
}

func (w *workbook) actions(analysis domain.AnalysisResult) {
	w.sheet(sheetActions)
	w.row(sheetActions, 1, []any{"Kind", "Item"})
	w.style(sheetActions, "A1", "B1")
	row := 2
	for _, strength := range analysis.Strengths {
		w.row(sheetActions, row, []any{"Strength", strength})
		row++
	}
	for _, step := range analysis.NextSteps {
		w.row(sheetActions, row, []any{"Next step", step})
		row++
	}
	w.width(sheetActions, "B", "B", 70)
}

func (w *workbook) sheet(name string) {
	if w.err != nil {
		return
	}
	if _, err := w.file.NewSheet(name); err != nil {
		w.err = fmt.Errorf("create sheet %s: %w", name, err)
	}
}

func (w *workbook) row(sheet string, index int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, index)
	if err != nil {
		w.err = fmt.Errorf("cell name for row %d: %w", index, err)
		return
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, index, err)
	}
}

func (w *workbook) style(sheet, from, to string) {
	if w.err != nil {
		return
	}
	if err := w.file.SetCellStyle(sheet, from, to, w.header); err != nil {
		w.err = fmt.Errorf("style %s header: %w", sheet, err)
	}
}

func (w *workbook) width(sheet, from, to string, width float64) {
	if w.err != nil {
		return
	}
	if err := w.file.SetColWidth(sheet, from, to, width); err != nil {
		w.err = fmt.Errorf("size %s columns: %w", sheet, err)
	}
}
