package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

const previousCSV = `Branch Name,Main Code,Ac Type Desc,Name,Limit,Balance,Provision
KTM,A1,Home Loan,Ram,1000,100,Good
KTM,S1,Home Loan,Sita,1000,200,Watchlist
PKR,T1,Staff Home Loan,Hari,500,50,Good
`

const currentCSV = `Branch Name,Main Code,Ac Type Desc,Name,Limit,Balance,Provision
KTM,A1,Home Loan,Ram,1000,150,Substandard
PKR,T1,Staff Home Loan,Hari,500,40,Good
PKR,N1,Auto Loan,Gita,900,75,Good
`

func writeFixtures(t *testing.T, current string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	prev := filepath.Join(dir, "previous.csv")
	curr := filepath.Join(dir, "current.csv")
	require.NoError(t, os.WriteFile(prev, []byte(previousCSV), 0644))
	require.NoError(t, os.WriteFile(curr, []byte(current), 0644))
	return prev, curr
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	original := logger.GetGlobalLogger()
	t.Cleanup(func() { logger.SetGlobalLogger(original) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	require.NoError(t, os.WriteFile(validFile, []byte("test"), 0644))

	tests := []struct {
		name         string
		filePath     string
		expectError  bool
		expectedCode errors.ErrorCode
	}{
		{"valid file", validFile, false, ""},
		{"empty path", "", true, errors.CodeMissingField},
		{"non-existent file", "/non/existent/file.csv", true, errors.CodeFileNotFound},
		{"directory instead of file", tmpDir, true, errors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "test file")
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}
			rerr, ok := errors.AsReconcilerError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedCode, rerr.Code)
		})
	}
}

func TestReconcileCommandJSON(t *testing.T) {
	prev, curr := writeFixtures(t, currentCSV)
	out := filepath.Join(t.TempDir(), "reports", "reco.json")

	_, err := execute(t, "reconcile",
		"--previous", prev, "--current", curr,
		"--output-format", "json", "--output-file", out,
		"--tables", "Movement_Summary,Reco")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var report struct {
		RunID  string          `json:"run_id"`
		Tables []*models.Table `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Tables, 2)

	reco := report.Tables[1]
	assert.Equal(t, "Reco", reco.Name)
	assert.Equal(t, []string{"Opening", "300.00", "2"}, reco.Rows[0])
	assert.Equal(t, []string{"Settled", "-200.00", "-1"}, reco.Rows[1])
	assert.Equal(t, "Closing", reco.Rows[5][0])
	assert.True(t, decimal.RequireFromString(reco.Rows[5][1]).Equal(decimal.NewFromInt(225)))
}

func TestReconcileCommandMarkdownToStdout(t *testing.T) {
	prev, curr := writeFixtures(t, currentCSV)

	stdout, err := execute(t, "reconcile",
		"--previous", prev, "--current", curr,
		"--output-format", "markdown", "--output-file=", "--tables=",
		"--currency", "USD")
	require.NoError(t, err)

	assert.Contains(t, stdout, "## Slippage_Detail")
	assert.Contains(t, stdout, "## Compare")
	assert.Contains(t, stdout, "$225.00")
}

func TestReconcileCommandInvalidProvision(t *testing.T) {
	prev, curr := writeFixtures(t, strings.Replace(currentCSV, "Substandard", "X", 1))

	_, err := execute(t, "reconcile",
		"--previous", prev, "--current", curr,
		"--output-format", "json", "--output-file=", "--tables=")
	require.Error(t, err)

	var buf bytes.Buffer
	handler := &CLIErrorHandler{logger: logger.Discard(), out: &buf}
	assert.Equal(t, 3, handler.HandleError(err))
	assert.Contains(t, buf.String(), "{'X'}")
}

func TestReconcileCommandRejectsBinaryToStdout(t *testing.T) {
	prev, curr := writeFixtures(t, currentCSV)

	_, err := execute(t, "reconcile",
		"--previous", prev, "--current", curr,
		"--output-format", "xlsx", "--output-file=", "--tables=")

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfiguration, rerr.Category)
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "reconciler dev"))
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		exitCode int
		contains string
	}{
		{"nil", nil, 0, ""},
		{"missing columns", errors.NewMissingColumnsError("current", []string{"Balance"}, []string{"Balanse"}), 3, "Balanse"},
		{"empty join", errors.NewEmptyJoinError("transition matrix"), 5, "transition matrix"},
		{"configuration", errors.ConfigurationError(errors.CodeInvalidConfig, "group-by", "region", nil), 4, "group-by"},
		{"file", errors.FileError(errors.CodeFileNotFound, "/tmp/none.csv", os.ErrNotExist), 2, "/tmp/none.csv"},
		{"generic not found", os.ErrNotExist, 2, "File not found"},
		{"generic", assert.AnError, 1, assert.AnError.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := &CLIErrorHandler{logger: logger.Discard(), out: &buf}

			assert.Equal(t, tt.exitCode, handler.HandleError(tt.err))
			assert.Contains(t, buf.String(), tt.contains)
		})
	}
}

func TestHandleErrorVerbose(t *testing.T) {
	var buf bytes.Buffer
	handler := &CLIErrorHandler{logger: logger.Discard(), out: &buf, verbose: true}

	handler.HandleError(errors.NewEmptyJoinError("transition matrix"))
	assert.Contains(t, buf.String(), "Reconciliation error help")
}
