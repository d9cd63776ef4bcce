package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kirillkom/compliance-decoder/internal/bootstrap"
	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/core/compliance"
	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/core/ports"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/compliance-decoder/internal/observability/logging"
)

// cliEnv holds the collaborators the commands reach for. Tests swap them.
type cliEnv struct {
	loadConfig   func(envFile string) (config.Config, error)
	newAnalyzer  func(cfg config.Config, logger *slog.Logger) (ports.ComplianceAnalyzer, error)
	parsePDF     func(raw []byte) (string, error)
	renderReport func(report domain.UploadAnalysis) ([]byte, error)
}

func defaultEnv() cliEnv {
	return cliEnv{
		loadConfig: func(envFile string) (config.Config, error) {
			if envFile == "" {
				return config.Load(), nil
			}
			return config.LoadFile(envFile)
		},
		newAnalyzer: func(cfg config.Config, logger *slog.Logger) (ports.ComplianceAnalyzer, error) {
			core, err := bootstrap.NewCore(cfg, nil, logger)
			if err != nil {
				return nil, err
			}
			return core.Analyzer, nil
		},
		parsePDF:     pdftext.Parse,
		renderReport: xlsx.NewRenderer().Render,
	}
}

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd(env cliEnv) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cedecoder",
		Short: "CE-marking compliance analysis",
		Long: `cedecoder analyzes CE technical documentation with a language model
and prints the applicable EU directives, gaps and next steps.

Catalog commands work offline. The analyze command needs GPT_API_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Env file to load instead of ./.env")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newAnalyzeCmd(env, opts),
		newDirectivesCmd(env, opts),
		newChecklistCmd(env, opts),
		newDocumentTypesCmd(env, opts),
	)
	return cmd
}

func (o *rootOptions) config(env cliEnv) (config.Config, error) {
	cfg, err := env.loadConfig(o.envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) catalog(env cliEnv) (*compliance.Catalog, error) {
	cfg, err := o.config(env)
	if err != nil {
		return nil, err
	}
	return compliance.LoadCatalogFile(cfg.DirectiveCatalogPath)
}

type analyzeOptions struct {
	documentType string
	category     string
	xlsxPath     string
	timeout      time.Duration
}

func newAnalyzeCmd(env cliEnv, root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf>",
		Short: "Analyze a PDF document and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, env, root, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.documentType, "type", "t", "general", "Document type, e.g. technical_file")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Product category, e.g. electronics")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Also write an Excel report to this path")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall analysis timeout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, env cliEnv, root *rootOptions, opts *analyzeOptions, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: only PDF files are supported", path)
	}
	cfg, err := root.config(env)
	if err != nil {
		return err
	}
	logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "cedecoder", root.logLevel)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	text, err := env.parsePDF(raw)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	analyzer, err := env.newAnalyzer(cfg, logger)
	if err != nil {
		return fmt.Errorf("init analyzer: %w", err)
	}

	var category *string
	if opts.category != "" {
		category = &opts.category
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	result := analyzer.Analyze(ctx, text, opts.documentType, category)

	report := domain.UploadAnalysis{
		FileID:          uuid.NewString(),
		Filename:        filepath.Base(path),
		DocumentType:    domain.ParseDocumentType(opts.documentType),
		ProductCategory: domain.ParseProductCategory(category),
		Analysis:        result,
	}
	if err := writeIndentedJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if opts.xlsxPath != "" {
		workbook, err := env.renderReport(report)
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if err := os.WriteFile(opts.xlsxPath, workbook, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if result.Failed() {
		return errors.New(result.Error)
	}
	return nil
}

func newDirectivesCmd(env cliEnv, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "directives [product_category]",
		Short: "List applicable EU directives, for one category or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := root.catalog(env)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				category := domain.ParseProductCategory(&args[0])
				if !catalog.HasCategory(category) {
					return fmt.Errorf("unknown product category %q", args[0])
				}
				for _, directive := range catalog.DirectivesFor(category) {
					fmt.Fprintln(out, directive)
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tDIRECTIVES")
			for _, info := range catalog.ProductCategories() {
				fmt.Fprintf(tw, "%s\t%s\n", info.ID, strings.Join(info.Directives, ", "))
			}
			return tw.Flush()
		},
	}
}

func newChecklistCmd(env cliEnv, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checklist <document_type>",
		Short: "Print the compliance checklist of a document type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := root.catalog(env)
			if err != nil {
				return err
			}
			items := catalog.ChecklistFor(domain.ParseDocumentType(args[0]))
			if len(items) == 0 {
				return fmt.Errorf("no checklist for document type %q", args[0])
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "[ ] %s\n", item)
			}
			return nil
		},
	}
}

func newDocumentTypesCmd(env cliEnv, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "document-types",
		Short: "List the document types that have a dedicated template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := root.catalog(env)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL")
			for _, info := range catalog.DocumentTypes() {
				fmt.Fprintf(tw, "%s\t%s\n", info.ID, info.Label)
			}
			return tw.Flush()
		},
	}
}

func writeIndentedJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
