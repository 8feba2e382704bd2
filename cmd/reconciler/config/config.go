// Package config turns command-line flags, environment variables and an
// optional config file into the configuration of each component.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"portfolio-reconciliation-service/internal/ingest"
	"portfolio-reconciliation-service/internal/matcher"
	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/internal/normalizer"
	"portfolio-reconciliation-service/internal/reconciler"
	"portfolio-reconciliation-service/internal/reporter"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// Keys shared by flags, the config file and RECONCILER_* variables.
const (
	KeyPrevious      = "previous"
	KeyCurrent       = "current"
	KeySheet         = "sheet"
	KeyDelimiter     = "delimiter"
	KeyOutputFormat  = "output-format"
	KeyOutputFile    = "output-file"
	KeyGroupBy       = "group-by"
	KeyCompareBy     = "compare-by"
	KeyDuplicateKeys = "duplicate-keys"
	KeyStrictLadder  = "strict-ladder"
	KeyCurrency      = "currency"
	KeyTables        = "tables"
	KeyMaxRows       = "max-rows"
	KeyRender        = "render"
	KeyStyle         = "style"
	KeyStaffLoans    = "staff-loans"
	KeySentinels     = "sentinels"
	KeyVerbose       = "verbose"
	KeyLogLevel      = "log-level"
	KeyLogFormat     = "log-format"
	KeyLogFile       = "log-file"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "RECONCILER"

// AppConfig is the merged configuration of one CLI invocation.
type AppConfig struct {
	Previous  string
	Current   string
	Sheet     string
	Delimiter string

	OutputFormat string
	OutputFile   string
	Currency     string
	Tables       []string
	MaxRows      int
	Render       bool
	Style        string

	GroupBy       []string
	CompareBy     []string
	DuplicateKeys string
	StrictLadder  bool
	StaffLoans    []string
	Sentinels     []string

	Verbose   bool
	LogLevel  string
	LogFormat string
	LogFile   string
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDelimiter, ",")
	v.SetDefault(KeyOutputFormat, string(reporter.FormatConsole))
	v.SetDefault(KeyCurrency, "NPR")
	v.SetDefault(KeyStyle, "dark")
	v.SetDefault(KeyGroupBy, dimensionNames(reconciler.DefaultConfig().Dimensions))
	v.SetDefault(KeyCompareBy, dimensionNames(reconciler.DefaultConfig().ComparisonDimensions))
	v.SetDefault(KeyDuplicateKeys, string(matcher.DuplicatesAllow))
	v.SetDefault(KeyStaffLoans, normalizer.DefaultStaffLoans)
	v.SetDefault(KeySentinels, normalizer.DefaultSentinels)
	v.SetDefault(KeyLogLevel, string(logger.WarnLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// BindEnv makes every key overridable as RECONCILER_<KEY>, with dashes
// written as underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// FromViper reads the merged configuration.
func FromViper(v *viper.Viper) *AppConfig {
	return &AppConfig{
		Previous:      v.GetString(KeyPrevious),
		Current:       v.GetString(KeyCurrent),
		Sheet:         v.GetString(KeySheet),
		Delimiter:     v.GetString(KeyDelimiter),
		OutputFormat:  strings.ToLower(v.GetString(KeyOutputFormat)),
		OutputFile:    v.GetString(KeyOutputFile),
		Currency:      strings.ToUpper(v.GetString(KeyCurrency)),
		Tables:        v.GetStringSlice(KeyTables),
		MaxRows:       v.GetInt(KeyMaxRows),
		Render:        v.GetBool(KeyRender),
		Style:         v.GetString(KeyStyle),
		GroupBy:       v.GetStringSlice(KeyGroupBy),
		CompareBy:     v.GetStringSlice(KeyCompareBy),
		DuplicateKeys: v.GetString(KeyDuplicateKeys),
		StrictLadder:  v.GetBool(KeyStrictLadder),
		StaffLoans:    v.GetStringSlice(KeyStaffLoans),
		Sentinels:     v.GetStringSlice(KeySentinels),
		Verbose:       v.GetBool(KeyVerbose),
		LogLevel:      strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:     strings.ToLower(v.GetString(KeyLogFormat)),
		LogFile:       v.GetString(KeyLogFile),
	}
}

// Validate checks the settings that no component validates on its own.
func (c *AppConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Previous, validation.Required),
		validation.Field(&c.Current, validation.Required),
		validation.Field(&c.Delimiter, validation.Required, validation.RuneLength(1, 1)),
		validation.Field(&c.OutputFile,
			validation.When(reporter.OutputFormat(c.OutputFormat).Binary(),
				validation.Required.Error("is required for binary output formats"))),
		validation.Field(&c.MaxRows, validation.Min(0)),
	)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "flags", err.Error(), err).
			WithSuggestion("Use 'reconciler reconcile --help' to see all available options")
	}
	return nil
}

// IngestConfig builds the file loader configuration.
func (c *AppConfig) IngestConfig() *ingest.Config {
	config := ingest.DefaultConfig()
	config.Sheet = c.Sheet
	if r := []rune(c.Delimiter); len(r) == 1 {
		config.Delimiter = r[0]
	}
	return config
}

// ReconcilerConfig builds the engine configuration.
func (c *AppConfig) ReconcilerConfig() (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()

	dims, err := models.ParseDimensions(c.GroupBy)
	if err != nil {
		return nil, err
	}
	config.Dimensions = dims

	if config.ComparisonDimensions, err = models.ParseDimensions(c.CompareBy); err != nil {
		return nil, err
	}

	if config.DuplicatePolicy, err = matcher.ParseDuplicatePolicy(c.DuplicateKeys); err != nil {
		return nil, err
	}

	config.Normalizer = &normalizer.Options{
		StaffLoans: c.StaffLoans,
		Sentinels:  c.Sentinels,
	}
	config.RequireLadderBalance = c.StrictLadder

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", err.Error(), err)
	}
	return config, nil
}

// ReportConfig builds the report configuration.
func (c *AppConfig) ReportConfig() (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(c.OutputFormat)
	config.Currency = c.Currency
	config.Tables = c.Tables
	config.MaxRows = c.MaxRows
	config.IncludeStages = c.Verbose
	config.RenderMarkdown = c.Render && c.OutputFile == ""
	config.MarkdownStyle = c.Style

	if config.Format == reporter.FormatCSV {
		config.CSVDelimiter = c.IngestConfig().Delimiter
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", err.Error(), err).
			WithSuggestion(fmt.Sprintf("Valid output formats: %s", formatNames()))
	}
	return config, nil
}

// LoggerConfig builds the logger configuration. --verbose raises the level
// to debug.
func (c *AppConfig) LoggerConfig() (*logger.Config, error) {
	config := logger.DefaultConfig()
	config.Level = logger.Level(c.LogLevel)
	config.Format = logger.Format(c.LogFormat)
	if c.Verbose {
		config.Level = logger.DebugLevel
	}
	if c.LogFile != "" {
		config.Output = logger.FileOutput
		config.File = filepath.Clean(c.LogFile)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "logging", err.Error(), err)
	}
	return config, nil
}

func dimensionNames(dims []models.Dimension) []string {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.String()
	}
	return names
}

func formatNames() string {
	names := make([]string, len(reporter.Formats))
	for i, f := range reporter.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
