// Package ingest loads portfolio extracts from CSV or XLSX files into raw
// tables. It performs no typing; the normalizer owns all validation.
package ingest

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// Config holds options for reading extracts
type Config struct {
	// Sheet selects the worksheet of an XLSX file; empty means the first sheet.
	Sheet            string
	Delimiter        rune
	ValidateEncoding bool
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Delimiter:        ',',
		ValidateEncoding: true,
	}
}

// Loader reads extract files into tables
type Loader struct {
	config *Config
	logger logger.Logger
}

// NewLoader creates a Loader. A nil config selects DefaultConfig.
func NewLoader(config *Config, log logger.Logger) *Loader {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Loader{config: config, logger: log.WithComponent("ingest")}
}

// Load reads the file at path, choosing the reader by extension.
func (l *Loader) Load(path string) (*models.Table, error) {
	l.logger.WithField("file_path", path).Debug("Opening extract")

	file, err := os.Open(path)
	if err != nil {
		l.logger.WithError(err).WithField("file_path", path).Error("Failed to open extract")
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	var table *models.Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		table, err = l.ReadCSV(file, path)
	case ".xlsx", ".xlsm":
		table, err = l.ReadXLSX(file, path)
	default:
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil).
			WithContext("extension", ext)
	}
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file_path": path,
		"columns":   len(table.Columns),
		"rows":      len(table.Rows),
	}).Info("Loaded extract")
	return table, nil
}

// ReadCSV reads a delimited extract. The first record is the header.
func (l *Loader) ReadCSV(r io.Reader, name string) (*models.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}

	if l.config.ValidateEncoding {
		for i, line := range bytes.Split(data, []byte("\n")) {
			if !utf8.Valid(line) {
				return nil, errors.ParseError(errors.CodeEncodingError, name, i+1,
					fmt.Errorf("invalid UTF-8 encoding detected"))
			}
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = l.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		line := 0
		var perr *csv.ParseError
		if stderrors.As(err, &perr) {
			line = perr.Line
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, line, err)
	}

	return toTable(name, records)
}

// ReadXLSX reads the configured worksheet of a workbook. The first row is
// the header.
func (l *Loader) ReadXLSX(r io.Reader, name string) (*models.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, name, err)
	}
	defer f.Close()

	sheet := l.config.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if !containsSheet(f.GetSheetList(), sheet) {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "sheet", sheet, nil).
			WithSuggestion(fmt.Sprintf("available sheets: %s", strings.Join(f.GetSheetList(), ", "))).
			WithContext("file", name)
	}

	// Cell formats only change how a number is shown; read the stored value.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, name, 0, err).
			WithContext("sheet", sheet)
	}

	l.logger.WithFields(logger.Fields{"file": name, "sheet": sheet}).Debug("Read worksheet")
	return toTable(name, rows)
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}

// toTable splits records into a header and data rows. Leading blank rows are
// skipped so that the first non-empty row is the header.
func toTable(name string, records [][]string) (*models.Table, error) {
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errors.ParseError(errors.CodeEmptyTable, name, 0, nil)
	}

	table := models.NewTable(filepath.Base(name), records[start]...)
	for _, rec := range records[start+1:] {
		table.AddRow(rec...)
	}
	return table, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
