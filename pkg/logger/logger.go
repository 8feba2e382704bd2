// Package logger provides the structured logging used across the reconciler.
//
// It wraps logrus behind a small Logger interface so packages can attach
// component and run fields without depending on logrus directly.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
)

// Logger is the logging contract shared by every component
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger
}

// Fields represents a map of key-value pairs for structured logging
type Fields map[string]interface{}

// Config holds configuration options for the logger
type Config struct {
	Level            Level  `json:"level" mapstructure:"level"`
	Format           Format `json:"format" mapstructure:"format"`
	Output           Output `json:"output" mapstructure:"output"`
	File             string `json:"file,omitempty" mapstructure:"file"`
	DisableTimestamp bool   `json:"disable_timestamp,omitempty" mapstructure:"disable_timestamp"`
}

// Level is a minimum severity
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format selects the logrus formatter
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// Output is where entries are written
type Output string

const (
	StdoutOutput  Output = "stdout"
	StderrOutput  Output = "stderr"
	FileOutput    Output = "file"
	DiscardOutput Output = "discard"
)

// DefaultConfig logs warnings and errors as text to stderr, keeping stdout
// free for the report.
func DefaultConfig() *Config {
	return &Config{
		Level:  WarnLevel,
		Format: TextFormat,
		Output: StderrOutput,
	}
}

// Validate validates the logger configuration
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required,
			validation.In(DebugLevel, InfoLevel, WarnLevel, ErrorLevel)),
		validation.Field(&c.Format, validation.Required,
			validation.In(JSONFormat, TextFormat)),
		validation.Field(&c.Output, validation.Required,
			validation.In(StdoutOutput, StderrOutput, FileOutput, DiscardOutput)),
		validation.Field(&c.File,
			validation.When(c.Output == FileOutput, validation.Required)),
	)
}

// entryLogger carries a logrus entry so that fields accumulate across
// WithField calls.
type entryLogger struct {
	entry *logrus.Entry
}

// NewLogger builds a Logger from config. A nil config selects DefaultConfig.
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}

	out, err := openOutput(config.Output, config.File)
	if err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}

	base := &logrus.Logger{
		Out:       out,
		Formatter: newFormatter(config.Format, config.DisableTimestamp),
		Hooks:     make(logrus.LevelHooks),
		Level:     level,
		ExitFunc:  os.Exit,
	}
	return &entryLogger{entry: logrus.NewEntry(base)}, nil
}

func openOutput(output Output, path string) (io.Writer, error) {
	switch output {
	case StdoutOutput:
		return os.Stdout, nil
	case DiscardOutput:
		return io.Discard, nil
	case FileOutput:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
	return os.Stderr, nil
}

func newFormatter(format Format, disableTimestamp bool) logrus.Formatter {
	if format == JSONFormat {
		return &logrus.JSONFormatter{
			DisableTimestamp: disableTimestamp,
			TimestampFormat:  time.RFC3339,
		}
	}
	return &logrus.TextFormatter{
		DisableTimestamp: disableTimestamp,
		FullTimestamp:    !disableTimestamp,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

func (l *entryLogger) Debug(args ...interface{})                { l.entry.Debug(args...) }
func (l *entryLogger) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *entryLogger) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *entryLogger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *entryLogger) Error(args ...interface{})                { l.entry.Error(args...) }

func (l *entryLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}

func (l *entryLogger) WithFields(fields Fields) Logger {
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *entryLogger) WithError(err error) Logger {
	return &entryLogger{entry: l.entry.WithError(err)}
}

func (l *entryLogger) WithComponent(component string) Logger {
	return l.WithField("component", component)
}

var globalLogger Logger

func init() {
	var err error
	if globalLogger, err = NewLogger(DefaultConfig()); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}
}

// SetGlobalLogger replaces the logger returned by GetGlobalLogger
func SetGlobalLogger(logger Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger
func GetGlobalLogger() Logger {
	return globalLogger
}

// Discard returns a logger that drops every entry.
func Discard() Logger {
	l, _ := NewLogger(&Config{Level: ErrorLevel, Format: TextFormat, Output: DiscardOutput})
	return l
}

// WithComponent tags the global logger with a component name
func WithComponent(component string) Logger {
	return globalLogger.WithComponent(component)
}
