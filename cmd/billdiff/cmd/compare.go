package cmd

import (
	"fatura-reconciler/internal/reconciler"
	"fatura-reconciler/internal/reporter"

	"github.com/spf13/cobra"
)

var (
	compareObligations string
	compareStatement   string
	comparePeriod      string
	compareStatementID string
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare projected obligations with the billed statement",
	Long: `Compare pairs the obligations projected for a period with the lines that
were actually billed, first by establishment, amount and date, then by
establishment alone, and reports changed, removed and added entries with
the total drift. Establishment aliases come from fatura.aliases.

Examples:
  billdiff compare --obligations obligations.csv --statement-file fatura.csv --period 2025-08
  billdiff compare --obligations obligations.csv --statement-file fatura.csv --period 2025-08 --format json`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFileExists(compareObligations, "obligations file"); err != nil {
			return err
		}
		if err := validateFileExists(compareStatement, "statement file"); err != nil {
			return err
		}
		return validatePeriod(comparePeriod)
	},
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareObligations, "obligations", "", "projected obligations CSV file (required)")
	compareCmd.Flags().StringVar(&compareStatement, "statement-file", "", "billed statement CSV file (required)")
	compareCmd.Flags().StringVar(&comparePeriod, "period", "", "due month YYYY-MM (default: all)")
	compareCmd.Flags().StringVar(&compareStatementID, "statement", "", "billing cycle id (default: statement column)")

	compareCmd.MarkFlagRequired("obligations")
	compareCmd.MarkFlagRequired("statement-file")
}

func runCompare(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	if err := s.readObligations(compareObligations); err != nil {
		return err
	}

	actual, err := s.readSnapshot(compareStatement, compareStatementID)
	if err != nil {
		return err
	}
	s.records.SeedSnapshot(actual)

	service, err := reconciler.NewDriftService(s.records, s.config.ReconcilerConfig())
	if err != nil {
		return err
	}

	result, err := service.Check(s.context(), comparePeriod, actual.StatementID)
	if err != nil {
		return err
	}

	return s.render(&reporter.ComparisonReport{
		Period:      comparePeriod,
		StatementID: actual.StatementID,
		Result:      result,
	})
}
