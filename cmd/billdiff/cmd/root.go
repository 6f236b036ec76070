package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "billdiff",
	Short: "Statement re-import diff and obligation reconciliation tool",
	Long: `Billdiff compares re-imported card statements with the stored version,
ties real payments to groups of projected obligations and reports the drift
between a projected fatura and what was actually billed.

Examples:
  billdiff diff --old stored.csv --new reimport.csv
  billdiff classify --old stored.csv --new reimport.csv --emit-overrides sel.yaml
  billdiff classify --old stored.csv --new reimport.csv --overrides sel.yaml --apply --write-snapshot merged.csv
  billdiff groups --obligations obligations.csv --period 2025-08
  billdiff settle --obligations obligations.csv --period 2025-08 --group CARDX_2025-08 \
    --payment-id P1 --payment-date 2025-08-12 --payment-amount -310.00
  billdiff compare --obligations obligations.csv --statement-file fatura.csv --period 2025-08`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return NewCLIErrorHandler(rootCmd.ErrOrStderr()).HandleError(err)
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("format", "f", "console", "output format: console, json, csv")
	rootCmd.PersistentFlags().StringP("output-file", "o", "", "output file path (default: stdout)")
	rootCmd.PersistentFlags().String("layout", "", "statement CSV layout: standard, br-card")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.file", rootCmd.PersistentFlags().Lookup("output-file"))
	viper.BindPFlag("input.layout", rootCmd.PersistentFlags().Lookup("layout"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// BILLDIFF_MATCHING_THRESHOLD overrides matching.threshold
	viper.SetEnvPrefix("BILLDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
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
