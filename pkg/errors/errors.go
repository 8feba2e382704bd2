// Package errors defines the categorized error type returned by every
// component, the domain errors of a reconciliation run and the exit code
// each category maps to.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory groups error codes by the stage that reports them
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies one failure within a category
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeFileCorrupted     ErrorCode = "file_corrupted"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeEncodingError ErrorCode = "encoding_error"
	CodeEmptyTable    ErrorCode = "empty_table"

	// Validation errors
	CodeMissingColumn        ErrorCode = "missing_column"
	CodeInvalidProvisionCode ErrorCode = "invalid_provision_code"
	CodeDuplicateKey         ErrorCode = "duplicate_key"
	CodeMissingField         ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"

	// Reconciliation errors
	CodeEmptyJoin        ErrorCode = "empty_join"
	CodeDataInconsistent ErrorCode = "data_inconsistent"
	CodeProcessingError  ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

var exitCodes = map[ErrorCategory]int{
	CategoryFile:           2,
	CategoryParse:          3,
	CategoryValidation:     3,
	CategoryConfiguration:  4,
	CategoryReconciliation: 5,
	CategoryInternal:       5,
}

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries the structured details printed under an error
type Context map[string]interface{}

func (e *ReconcilerError) Error() string {
	if e.Suggestion == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
}

func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns the process exit code for the error's category, 1 when
// the category is unknown.
func (e *ReconcilerError) GetExitCode() int {
	if code, ok := exitCodes[e.Category]; ok {
		return code
	}
	return 1
}

// WithContext records a detail and returns e for chaining
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion replaces the remediation hint and returns e for chaining
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates an error with a stack trace captured at the call site
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New(message).(stackTracer).StackTrace(),
	}
}

// Wrap attaches a category and code to err. A nil err yields nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// template is the message and hint of one error code. The message is a
// format string over the constructor's subject.
type template struct {
	message    string
	suggestion string
}

var templates = map[ErrorCode]template{
	CodeFileNotFound:      {"file not found: %s", "check if the file path is correct and the file exists"},
	CodeFilePermission:    {"permission denied accessing file: %s", "check file permissions and ensure you have read access"},
	CodeFileCorrupted:     {"file appears to be corrupted: %s", "re-export the snapshot from the source system"},
	CodeUnsupportedFormat: {"unsupported snapshot format: %s", "provide the snapshot as .csv or .xlsx"},

	CodeInvalidFormat: {"invalid format in %s", "check the data format and ensure it matches the expected structure"},
	CodeEncodingError: {"encoding error in %s", "ensure the file is saved in UTF-8 encoding"},
	CodeEmptyTable:    {"%s contains no header row", "ensure the first row of the extract holds the column names"},

	CodeInvalidConfig: {"invalid configuration for %s", "check the configuration documentation for valid values"},

	CodeEmptyJoin:        {"previous and current snapshots share no accounts during %s", "check that both extracts come from the same portfolio and use the same Main Code scheme"},
	CodeDataInconsistent: {"data inconsistency detected during %s", "verify data integrity and resolve inconsistencies"},
	CodeProcessingError:  {"processing error during %s", "check the input snapshots and try again"},

	CodeUnexpectedError: {"unexpected error during %s", "this is likely a bug, please report it with the error details"},
}

var fallbacks = map[ErrorCategory]template{
	CategoryFile:           {"file error: %s", "check the file and try again"},
	CategoryParse:          {"parse error in %s", "check the file format and data integrity"},
	CategoryConfiguration:  {"configuration error: %s", "check your configuration and try again"},
	CategoryReconciliation: {"reconciliation error during %s", "review the data and configuration"},
	CategoryInternal:       {"internal error during %s", "try again or report the problem if it persists"},
}

func build(category ErrorCategory, code ErrorCode, subject string, err error) *ReconcilerError {
	tmpl, ok := templates[code]
	if !ok {
		tmpl = fallbacks[category]
	}

	message := fmt.Sprintf(tmpl.message, subject)
	var e *ReconcilerError
	if err != nil {
		e = Wrap(err, category, code, message)
	} else {
		e = New(category, code, message)
	}
	return e.WithSuggestion(tmpl.suggestion)
}

// FileError reports a failure to open or read path
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	return build(CategoryFile, code, path, err).
		WithContext("file_path", path)
}

// ParseError reports malformed content in file. A zero line means the
// failure is not tied to a single line.
func ParseError(code ErrorCode, file string, line int, err error) *ReconcilerError {
	subject := file
	if line > 0 {
		subject = fmt.Sprintf("file %s at line %d", file, line)
	}
	return build(CategoryParse, code, subject, err).
		WithContext("file", file).
		WithContext("line", line)
}

// ConfigurationError reports an invalid value for setting
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	return build(CategoryConfiguration, code, fmt.Sprintf("'%s': %v", setting, value), err).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError reports a failure of one reconciliation stage
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(CategoryReconciliation, code, operation, err).
		WithContext("operation", operation)
}

// InternalError reports a failure that valid input should never cause
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(CategoryInternal, code, operation, err).
		WithContext("operation", operation)
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded returns the ReconcilerError already in err's chain, or wraps
// err with the given category and code.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
