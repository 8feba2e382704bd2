package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"portfolio-reconciliation-service/cmd/reconciler/config"
	"portfolio-reconciliation-service/pkg/errors"
)

var (
	cfgFile string
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Loan portfolio snapshot reconciliation tool",
	Long: `Reconciler compares two snapshots of a loan portfolio taken at different
dates. It reports how accounts moved between risk categories and explains
the change in total outstanding balance as settled, new and changed accounts.

Examples:
  reconciler reconcile --previous june.xlsx --current july.xlsx
  reconciler reconcile --previous prev.csv --current curr.csv --output-format xlsx --output-file reco.xlsx
  reconciler version`,
	Version:           getVersionString(),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: readConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolP(config.KeyVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String(config.KeyLogFormat, "text", "log format: text, json")
	rootCmd.PersistentFlags().String(config.KeyLogFile, "", "write logs to this file instead of stderr")

	// Bind flags to viper
	for _, key := range []string{config.KeyVerbose, config.KeyLogLevel, config.KeyLogFormat, config.KeyLogFile} {
		viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

// readConfig reads the config file named by --config, if any.
func readConfig(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return nil
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
			WithSuggestion("Check that the config file exists and is valid YAML, JSON or TOML")
	}

	if viper.GetBool(config.KeyVerbose) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", viper.ConfigFileUsed())
	}
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
