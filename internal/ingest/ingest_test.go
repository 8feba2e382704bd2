package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

func newLoader(cfg *Config) *Loader {
	return NewLoader(cfg, logger.Discard())
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "previous.csv")
	content := "\n Main Code ,Balance,Limit\nA1,\"1,000.50\",2000\nA2,20,30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := newLoader(nil).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "previous.csv", table.Name)
	assert.Equal(t, []string{"Main Code ", "Balance", "Limit"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "1,000.50", table.Rows[0][1])
}

func TestReadCSVInvalidEncoding(t *testing.T) {
	input := "Main Code,Balance\nA1,\xff\xfe\n"

	_, err := newLoader(nil).ReadCSV(strings.NewReader(input), "bad.csv")
	require.Error(t, err)

	rerr, ok := apperrors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeEncodingError, rerr.Code)
	assert.Equal(t, 2, rerr.Context["line"])
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := newLoader(nil).ReadCSV(strings.NewReader("\n\n"), "empty.csv")

	rerr, ok := apperrors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeEmptyTable, rerr.Code)
}

func TestReadCSVCustomDelimiter(t *testing.T) {
	loader := newLoader(&Config{Delimiter: ';'})
	table, err := loader.ReadCSV(strings.NewReader("Main Code;Balance\nA1;10\n"), "semi.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "10"}, table.Rows[0])
}

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.xlsx")
	writeWorkbook(t, path, "Sheet1", [][]interface{}{
		{"Branch Name", "Main Code", "Balance"},
		{"KTM", "A1", 150},
	})

	table, err := newLoader(nil).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Branch Name", "Main Code", "Balance"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"KTM", "A1", "150"}, table.Rows[0])
}

func TestLoadXLSXIgnoresNumberFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.xlsx")
	writeWorkbook(t, path, "Sheet1", [][]interface{}{
		{"Main Code", "Limit", "Balance"},
		{"A1", 0.4, 1234.56},
	})

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	style, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "C2", style))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	table, err := newLoader(nil).Load(path)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "0.4", table.Rows[0][1])
	assert.Equal(t, "1234.56", table.Rows[0][2])
}

func TestLoadXLSXNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.xlsx")
	writeWorkbook(t, path, "Loans", [][]interface{}{
		{"Main Code", "Balance"},
		{"B7", 70},
	})

	table, err := newLoader(&Config{Sheet: "Loans"}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "B7", table.Rows[0][0])

	_, err = newLoader(&Config{Sheet: "Missing"}).Load(path)
	rerr, ok := apperrors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CategoryConfiguration, rerr.Category)
	assert.Contains(t, rerr.Suggestion, "Loans")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	unsupported := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(unsupported, []byte("{}"), 0644))

	tests := []struct {
		name string
		path string
		code apperrors.ErrorCode
	}{
		{"missing file", filepath.Join(dir, "nope.csv"), apperrors.CodeFileNotFound},
		{"unsupported extension", unsupported, apperrors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(nil).Load(tt.path)
			rerr, ok := apperrors.AsReconcilerError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, rerr.Code)
			assert.Equal(t, 2, rerr.GetExitCode())
		})
	}
}
