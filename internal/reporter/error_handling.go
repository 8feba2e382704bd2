package reporter

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"portfolio-reconciliation-service/internal/reconciler"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with enhanced error handling
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config, log)
	if err != nil {
		return nil, err
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely generates a report with comprehensive error handling and fallbacks
func (srg *SafeReportGenerator) GenerateReportSafely(result *reconciler.Result, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Info("Starting report generation")

	if err := srg.validateInputs(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	if err := srg.generateWithFallback(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return err
	}

	srg.logger.Info("Report generation completed successfully")
	return nil
}

// GenerateToFile writes the report to path, creating parent directories.
// When path cannot be written the report goes to a backup file in the
// system temp directory; the returned path is where the report ended up.
func (srg *SafeReportGenerator) GenerateToFile(result *reconciler.Result, path string) (string, error) {
	if err := srg.validateInputs(result, io.Discard); err != nil {
		return "", err
	}

	file, err := createOutput(path)
	if err != nil {
		if !isFileError(err) {
			return "", errors.FileError(errors.CodeFilePermission, path, err)
		}
		backup := generateBackupPath(path)
		srg.logger.WithFields(logger.Fields{
			"original_file": path,
			"backup_file":   backup,
		}).WithError(err).Warn("Attempting output fallback")

		if file, err = createOutput(backup); err != nil {
			return "", errors.FileError(errors.CodeFilePermission, path, err).
				WithSuggestion("Check that the output directory exists and is writable")
		}
		path = backup
	}

	if err := srg.GenerateReportSafely(result, file); err != nil {
		file.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			srg.logger.WithError(rmErr).WithField("file", path).Warn("Failed to remove incomplete report")
		}
		return "", err
	}
	if err := file.Close(); err != nil {
		return path, errors.FileError(errors.CodeFilePermission, path, err)
	}
	return path, nil
}

func createOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// validateInputs validates the inputs for report generation
func (srg *SafeReportGenerator) validateInputs(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "reconciliation result is required").
			WithSuggestion("Provide a valid reconciliation result")
	}
	if writer == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "report writer is required").
			WithSuggestion("Provide a valid output writer")
	}
	return nil
}

// generateWithFallback attempts to generate the report with fallback strategies
func (srg *SafeReportGenerator) generateWithFallback(result *reconciler.Result, writer io.Writer) error {
	err := srg.GenerateReport(result, writer)
	if err == nil {
		return nil
	}

	var render *renderError
	if stderrors.As(err, &render) {
		srg.logger.WithError(err).Warn("Terminal rendering failed, writing plain markdown")
		return srg.generatePlainMarkdown(result, writer, err)
	}

	return srg.wrapGenerationError(err)
}

// generatePlainMarkdown retries a markdown report without terminal rendering.
func (srg *SafeReportGenerator) generatePlainMarkdown(result *reconciler.Result, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.RenderMarkdown = false

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig, srg.logger)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	if err := fallbackGenerator.GenerateReport(result, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated successfully using plain markdown")
	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if _, ok := errors.AsReconcilerError(err); ok {
		return errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeProcessingError, "report generation failed")
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

// isFileError checks if the error is file-related
func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		isSpaceError(err)
}

// generateBackupPath creates a backup file path in the temp directory
func generateBackupPath(originalPath string) string {
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return filepath.Join(os.TempDir(), fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}
