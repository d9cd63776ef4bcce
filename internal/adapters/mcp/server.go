// Package mcpadapter exposes the directive catalog and the analysis pipeline
// as MCP tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
)

const (
	serverName = "compliance-decoder"

	toolListDirectives = "list_directives"
	toolGetChecklist   = "get_checklist"
	toolAnalyzeText    = "analyze_document_text"
)

type Server struct {
	catalog  *compliance.Catalog
	analyzer ports.ComplianceAnalyzer
	logger   *slog.Logger
}

// NewServer registers the analysis tool only when analyzer is not nil.
func NewServer(catalog *compliance.Catalog, analyzer ports.ComplianceAnalyzer, logger *slog.Logger) *Server {
	if catalog == nil {
		catalog = compliance.DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{catalog: catalog, analyzer: analyzer, logger: logger}
}

func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool(toolListDirectives,
		mcp.WithDescription("List the EU directives that apply to a product category. Without a category, lists every category."),
		mcp.WithString("product_category",
			mcp.Description("Product category id, e.g. electronics or toys."),
		),
	), s.listDirectives)

	docTypes := make([]string, 0, len(domain.DocumentTypes))
	for _, docType := range domain.DocumentTypes {
		docTypes = append(docTypes, string(docType))
	}
	srv.AddTool(mcp.NewTool(toolGetChecklist,
		mcp.WithDescription("Return the CE compliance checklist for a document type."),
		mcp.WithString("document_type",
			mcp.Required(),
			mcp.Description("Document type id."),
			mcp.Enum(docTypes...),
		),
	), s.getChecklist)

	if s.analyzer != nil {
		srv.AddTool(mcp.NewTool(toolAnalyzeText,
			mcp.WithDescription("Analyze CE documentation text and return a structured compliance assessment."),
			mcp.WithString("document_text",
				mcp.Required(),
				mcp.Description("Plain text of the document."),
			),
			mcp.WithString("document_type",
				mcp.Description("Document type id. Unknown values use the general template."),
			),
			mcp.WithString("product_category",
				mcp.Description("Optional product category id."),
			),
		), s.analyzeText)
	}

	return srv
}

// ServeStdio blocks until ctx is done or in is closed. Nothing but protocol
// frames may be written to out.
func (s *Server) ServeStdio(ctx context.Context, version string, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.MCPServer(version))
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

type categoryDirectives struct {
	ProductCategory      string               `json:"product_category"`
	ApplicableDirectives []domain.DirectiveID `json:"applicable_directives"`
}

func (s *Server) listDirectives(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := strings.TrimSpace(request.GetString("product_category", ""))
	if raw != "" {
		return jsonResult(categoryDirectives{
			ProductCategory:      raw,
			ApplicableDirectives: s.catalog.DirectivesFor(domain.ParseProductCategory(&raw)),
		})
	}

	categories := s.catalog.ProductCategories()
	out := make([]categoryDirectives, 0, len(categories))
	for _, category := range categories {
		out = append(out, categoryDirectives{
			ProductCategory:      string(category.ID),
			ApplicableDirectives: category.Directives,
		})
	}
	return jsonResult(out)
}

func (s *Server) getChecklist(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("document_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"document_type":   raw,
		"checklist_items": s.catalog.ChecklistFor(domain.ParseDocumentType(raw)),
	})
}

func (s *Server) analyzeText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("document_text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	documentType := request.GetString("document_type", "general")

	var category *string
	if raw := request.GetString("product_category", ""); raw != "" {
		category = &raw
	}

	result := s.analyzer.Analyze(ctx, text, documentType, category)
	s.logger.Info("mcp_tool_call",
		"tool", toolAnalyzeText,
		"document_type", documentType,
		"risk_level", result.RiskLevel,
		"failed", result.Failed(),
	)

	toolResult, err := jsonResult(result)
	if err != nil {
		return nil, err
	}
	toolResult.IsError = result.Failed()
	return toolResult, nil
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
