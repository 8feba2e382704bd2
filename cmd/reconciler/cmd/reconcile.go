package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"portfolio-reconciliation-service/cmd/reconciler/config"
	"portfolio-reconciliation-service/internal/ingest"
	"portfolio-reconciliation-service/internal/models"
	"portfolio-reconciliation-service/internal/reconciler"
	"portfolio-reconciliation-service/internal/reporter"
	"portfolio-reconciliation-service/pkg/errors"
	"portfolio-reconciliation-service/pkg/logger"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile two portfolio snapshots",
	Long: `Reconcile compares a previous and a current portfolio extract, classifies
each shared account's risk movement, builds transition matrices and explains
the change in total balance through a reconciliation ladder.

Both extracts must carry the columns Branch Name, Main Code, Ac Type Desc,
Name, Limit, Balance and Provision. CSV and XLSX files are accepted.

Examples:
  # Console report
  reconciler reconcile --previous june.xlsx --current july.xlsx

  # Workbook with every table on its own sheet
  reconciler reconcile --previous june.xlsx --current july.xlsx \
    --output-format xlsx --output-file reco.xlsx

  # Branch-only matrices, fail on duplicate account codes
  reconciler reconcile --previous prev.csv --current curr.csv \
    --group-by branch --duplicate-keys reject

  # Rendered markdown in the terminal
  reconciler reconcile --previous prev.csv --current curr.csv \
    --output-format markdown --render`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()

	// Input flags
	flags.StringP(config.KeyPrevious, "p", "", "path to the previous snapshot, CSV or XLSX (required)")
	flags.StringP(config.KeyCurrent, "c", "", "path to the current snapshot, CSV or XLSX (required)")
	flags.String(config.KeySheet, "", "worksheet to read from XLSX inputs (default: first sheet)")
	flags.String(config.KeyDelimiter, ",", "field delimiter for CSV inputs and output")

	// Output flags
	flags.StringP(config.KeyOutputFormat, "f", "console", "output format: console, json, csv, markdown, xlsx")
	flags.StringP(config.KeyOutputFile, "o", "", "output file path (default: stdout)")
	flags.String(config.KeyCurrency, "NPR", "ISO currency code for displayed amounts")
	flags.StringSlice(config.KeyTables, nil, "only output these tables, e.g. Reco,Compare")
	flags.Int(config.KeyMaxRows, 0, "maximum rows per table in console and markdown output (0 = all)")
	flags.Bool(config.KeyRender, false, "render markdown output for the terminal")
	flags.String(config.KeyStyle, "dark", "terminal style for rendered markdown")

	// Reconciliation flags
	flags.StringSlice(config.KeyGroupBy, []string{"branch", "account_type"}, "dimensions of the grouped transition matrices")
	flags.StringSlice(config.KeyCompareBy, []string{"account_type", "branch"}, "dimensions of the grouped balance comparisons")
	flags.String(config.KeyDuplicateKeys, "allow", "duplicate Main Code handling: allow, reject")
	flags.Bool(config.KeyStrictLadder, false, "fail when the reconciliation ladder does not close")
	flags.StringSlice(config.KeyStaffLoans, nil, "account types excluded from balance comparison (default: built-in list)")
	flags.StringSlice(config.KeySentinels, nil, "Main Code values that mark subtotal rows (default: built-in list)")

	// Bind flags to viper
	flags.VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	cfg := config.FromViper(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := validateFileExists(cfg.Previous, "previous snapshot"); err != nil {
		return err
	}
	return validateFileExists(cfg.Current, "current snapshot")
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField,
			fmt.Sprintf("%s path cannot be empty", description))
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).
			WithContext("file", description)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeUnsupportedFormat, filePath,
			fmt.Errorf("%s is a directory, expected a file", description))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg := config.FromViper(viper.GetViper())

	logConfig, err := cfg.LoggerConfig()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "logging", logConfig, err)
	}
	logger.SetGlobalLogger(log)

	reconcilerConfig, err := cfg.ReconcilerConfig()
	if err != nil {
		return err
	}
	reportConfig, err := cfg.ReportConfig()
	if err != nil {
		return err
	}

	if cfg.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Starting reconciliation...\n")
		fmt.Fprintf(cmd.ErrOrStderr(), "Previous snapshot: %s\n", cfg.Previous)
		fmt.Fprintf(cmd.ErrOrStderr(), "Current snapshot: %s\n", cfg.Current)
		fmt.Fprintf(cmd.ErrOrStderr(), "Output format: %s\n", cfg.OutputFormat)
	}

	loader := ingest.NewLoader(cfg.IngestConfig(), log)
	previous, err := loader.Load(cfg.Previous)
	if err != nil {
		return err
	}
	current, err := loader.Load(cfg.Current)
	if err != nil {
		return err
	}

	service, err := reconciler.NewService(reconcilerConfig, log)
	if err != nil {
		return err
	}

	result, err := service.Reconcile(context.Background(), &reconciler.Request{Previous: previous, Current: current})
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), generator, result, cfg.OutputFile); err != nil {
		return err
	}

	if cfg.Verbose {
		printSummary(cmd.ErrOrStderr(), result)
	}
	return nil
}

func writeReport(stdout, stderr io.Writer, generator *reporter.SafeReportGenerator, result *reconciler.Result, outputFile string) error {
	if outputFile == "" {
		return generator.GenerateReportSafely(result, stdout)
	}

	written, err := generator.GenerateToFile(result, outputFile)
	if err != nil {
		return err
	}
	if written != outputFile {
		fmt.Fprintf(stderr, "Warning: could not write to %s, report saved to %s\n", outputFile, written)
	}
	return nil
}

func printSummary(w io.Writer, result *reconciler.Result) {
	ladder := result.Bridge.Ladder
	fmt.Fprintf(w, "\nReconciliation %s completed.\n", result.RunID)
	fmt.Fprintf(w, "Matched accounts: %d (slippage %d, upgrade %d, stable %d)\n",
		len(result.Slippage), result.MovementSummary.Slippage,
		result.MovementSummary.Upgrade, result.MovementSummary.Stable)
	fmt.Fprintf(w, "Opening %s, closing %s, difference %s\n",
		models.FormatAmount(ladder.Opening.Amount),
		models.FormatAmount(ladder.Closing.Amount),
		models.FormatAmount(ladder.Difference()))
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	for _, stage := range result.Stages {
		fmt.Fprintf(w, "  %s\n", stage)
	}
}
