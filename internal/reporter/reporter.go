// Package reporter renders reconciliation results for people and for other
// tools.
//
// Every format works from the same ordered list of named tables produced by
// the reconciler, so the numbers in a console report, a CSV export and a
// workbook are always identical.
//
// Supported output formats:
//   - Console: aligned text tables with currency-formatted amounts
//   - JSON: the tables plus run metadata for programmatic consumption
//   - CSV: one section per table for spreadsheet import
//   - Markdown: GitHub-flavoured tables, optionally rendered for the terminal
//   - XLSX: one worksheet per table with bold total rows
//
// Example usage:
//
//	config := reporter.DefaultReportConfig()
//	config.Format = reporter.FormatXLSX
//	generator, err := reporter.NewReportGenerator(config, log)
//	err = generator.GenerateReport(result, file)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/internal/reconciler"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatXLSX     OutputFormat = "xlsx"
)

// Formats lists every supported output format.
var Formats = []OutputFormat{FormatConsole, FormatJSON, FormatCSV, FormatMarkdown, FormatXLSX}

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Binary reports whether the format produces non-text output.
func (f OutputFormat) Binary() bool {
	return f == FormatXLSX
}

// Extension returns the conventional file extension for the format.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".txt"
	}
}

// MarkdownStyles are the glamour styles accepted for terminal rendering.
var MarkdownStyles = []string{"dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Currency is the ISO code used to display amounts in console and
	// markdown output. Empty prints plain decimals.
	Currency string `json:"currency" mapstructure:"currency"`

	// Tables restricts output to the named tables. Empty means all tables.
	Tables []string `json:"tables" mapstructure:"tables"`

	IncludeWarnings bool `json:"include_warnings" mapstructure:"include_warnings"`
	IncludeStages   bool `json:"include_stages" mapstructure:"include_stages"`

	// MaxRows limits the rows printed per table in console and markdown
	// output; 0 prints every row.
	MaxRows int `json:"max_rows" mapstructure:"max_rows"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`

	// Markdown options
	RenderMarkdown bool   `json:"render_markdown" mapstructure:"render_markdown"`
	MarkdownStyle  string `json:"markdown_style" mapstructure:"markdown_style"`
	WordWrap       int    `json:"word_wrap" mapstructure:"word_wrap"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatConsole,
		Currency:        "NPR",
		IncludeWarnings: true,
		IncludeStages:   false,
		MaxRows:         0,
		CSVDelimiter:    ',',
		RenderMarkdown:  false,
		MarkdownStyle:   "notty",
		WordWrap:        120,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	formats := make([]interface{}, len(Formats))
	for i, f := range Formats {
		formats[i] = f
	}
	styles := make([]interface{}, len(MarkdownStyles))
	for i, s := range MarkdownStyles {
		styles[i] = s
	}

	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(formats...)),
		validation.Field(&c.Currency, validation.By(func(value interface{}) error {
			code, _ := value.(string)
			if code != "" && !IsKnownCurrency(code) {
				return fmt.Errorf("unknown currency %q", code)
			}
			return nil
		})),
		validation.Field(&c.MaxRows, validation.Min(0)),
		validation.Field(&c.CSVDelimiter, validation.Required,
			validation.NotIn('"', '\r', '\n')),
		validation.Field(&c.MarkdownStyle, validation.When(c.RenderMarkdown, validation.Required, validation.In(styles...))),
		validation.Field(&c.WordWrap, validation.Min(0)),
	)
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig, log logger.Logger) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", err.Error(), err).
			WithSuggestion("Check the output format, currency and markdown settings")
	}

	return &ReportGenerator{
		config: config,
		logger: log.WithComponent("reporter"),
	}, nil
}

// report is the content shared by every output format.
type report struct {
	RunID    string                   `json:"run_id"`
	Tables   []*models.Table          `json:"tables"`
	Warnings []string                 `json:"warnings,omitempty"`
	Stages   []map[string]interface{} `json:"stages,omitempty"`
}

// GenerateReport generates a report from reconciliation results and writes it to the provided writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "reconciliation result cannot be nil")
	}

	rep, err := rg.buildReport(result)
	if err != nil {
		return err
	}

	rg.logger.WithFields(logger.Fields{
		"format": rg.config.Format,
		"tables": len(rep.Tables),
	}).Debug("Rendering report")

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(rep, writer)
	case FormatJSON:
		return rg.generateJSONReport(rep, writer)
	case FormatCSV:
		return rg.generateCSVReport(rep, writer)
	case FormatMarkdown:
		return rg.generateMarkdownReport(rep, writer)
	case FormatXLSX:
		return rg.generateWorkbook(rep, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) buildReport(result *reconciler.Result) (*report, error) {
	tables, err := rg.selectTables(result.Tables())
	if err != nil {
		return nil, err
	}

	rep := &report{RunID: result.RunID, Tables: tables}
	if rg.config.IncludeWarnings {
		rep.Warnings = result.Warnings
	}
	if rg.config.IncludeStages {
		for _, s := range result.Stages {
			rep.Stages = append(rep.Stages, map[string]interface{}{
				"name":     s.Name,
				"rows":     s.Rows,
				"duration": s.Duration.String(),
			})
		}
	}
	return rep, nil
}

// selectTables keeps the configured tables in export order.
func (rg *ReportGenerator) selectTables(all []*models.Table) ([]*models.Table, error) {
	if len(rg.config.Tables) == 0 {
		return all, nil
	}

	byName := make(map[string]bool, len(all))
	names := make([]string, len(all))
	for i, t := range all {
		byName[t.Name] = true
		names[i] = t.Name
	}

	wanted := make(map[string]bool, len(rg.config.Tables))
	for _, name := range rg.config.Tables {
		if !byName[name] {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "tables", name, nil).
				WithSuggestion("Available tables: " + strings.Join(names, ", "))
		}
		wanted[name] = true
	}

	var selected []*models.Table
	for _, t := range all {
		if wanted[t.Name] {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(rep *report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rep)
}

// generateCSVReport writes each table as a section: a title line, the
// header, the rows and a blank separator.
func (rg *ReportGenerator) generateCSVReport(rep *report, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	for i, t := range rep.Tables {
		if i > 0 {
			if err := csvWriter.Write([]string{}); err != nil {
				return fmt.Errorf("failed to write CSV separator: %w", err)
			}
		}
		if err := csvWriter.Write([]string{t.Name}); err != nil {
			return fmt.Errorf("failed to write CSV section %s: %w", t.Name, err)
		}
		if err := csvWriter.Write(t.Columns); err != nil {
			return fmt.Errorf("failed to write CSV headers for %s: %w", t.Name, err)
		}
		if err := csvWriter.WriteAll(t.Rows); err != nil {
			return fmt.Errorf("failed to write CSV rows for %s: %w", t.Name, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
