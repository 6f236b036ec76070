package cmd

import (
	"fmt"
	"time"

	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/reconciler"
	"fatura-reconciler/internal/reporter"
	"fatura-reconciler/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	obligationsFile string
	period          string

	groupID            string
	paymentID          string
	paymentDate        string
	paymentAmount      string
	paymentDescription string
	paymentOrigin      string
	paymentStatement   string
	dryRun             bool
)

// groupsCmd represents the groups command
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the settlement groups of projected obligations",
	Long: `Groups lists the obligations of a period grouped the way a payment settles
them: by explicit group id, otherwise by origin and due month.

Examples:
  billdiff groups --obligations obligations.csv
  billdiff groups --obligations obligations.csv --period 2025-08 --format csv`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFileExists(obligationsFile, "obligations file"); err != nil {
			return err
		}
		return validatePeriod(period)
	},
	RunE: runGroups,
}

// settleCmd represents the settle command
var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle a group of projected obligations with one real payment",
	Long: `Settle validates a payment against a settlement group and, unless
--dry-run is given, creates one posted record per member and marks the
members reconciled. A difference between the payment and the group total
is reported as a warning and does not block.

Examples:
  billdiff settle --obligations obligations.csv --period 2025-08 --group CARDX_2025-08 \
    --payment-id P1 --payment-date 2025-08-12 --payment-amount -310.00
  billdiff settle --obligations obligations.csv --group rent --payment-id P2 \
    --payment-date 2025-08-05 --payment-amount -1500 --dry-run`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFileExists(obligationsFile, "obligations file"); err != nil {
			return err
		}
		if err := validatePeriod(period); err != nil {
			return err
		}
		if groupID == "" {
			return fmt.Errorf("--group is required")
		}
		_, err := buildPayment()
		return err
	},
	RunE: runSettle,
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(settleCmd)

	for _, c := range []*cobra.Command{groupsCmd, settleCmd} {
		c.Flags().StringVar(&obligationsFile, "obligations", "", "projected obligations CSV file (required)")
		c.Flags().StringVar(&period, "period", "", "due month YYYY-MM (default: all)")
		c.MarkFlagRequired("obligations")
	}

	settleCmd.Flags().StringVar(&groupID, "group", "", "settlement group id (required)")
	settleCmd.Flags().StringVar(&paymentID, "payment-id", "", "payment id (required)")
	settleCmd.Flags().StringVar(&paymentDate, "payment-date", "", "payment date YYYY-MM-DD (required)")
	settleCmd.Flags().StringVar(&paymentAmount, "payment-amount", "", "signed payment amount (required)")
	settleCmd.Flags().StringVar(&paymentDescription, "payment-description", "", "payment description")
	settleCmd.Flags().StringVar(&paymentOrigin, "payment-origin", "", "origin tag of the payment account")
	settleCmd.Flags().StringVar(&paymentStatement, "payment-statement", "", "statement the posted records belong to")
	settleCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only, write nothing")

	settleCmd.MarkFlagRequired("group")
	settleCmd.MarkFlagRequired("payment-id")
	settleCmd.MarkFlagRequired("payment-date")
	settleCmd.MarkFlagRequired("payment-amount")
}

func validatePeriod(p string) error {
	if p == "" {
		return nil
	}
	if _, err := time.Parse("2006-01", p); err != nil {
		return fmt.Errorf("invalid period format. Use YYYY-MM: %w", err)
	}
	return nil
}

// buildPayment assembles the payment line item from the flags
func buildPayment() (models.LineItem, error) {
	date, err := time.Parse(models.DateLayout, paymentDate)
	if err != nil {
		return models.LineItem{}, fmt.Errorf("invalid payment date format. Use YYYY-MM-DD: %w", err)
	}

	amount, err := models.ParseDecimalFromString(paymentAmount)
	if err != nil {
		return models.LineItem{}, fmt.Errorf("invalid payment amount: %w", err)
	}

	return models.NewLineItem(paymentID, date, amount, paymentDescription, paymentOrigin, paymentStatement), nil
}

func runGroups(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	if err := s.readObligations(obligationsFile); err != nil {
		return err
	}

	service, err := reconciler.NewSettlementService(s.records, s.config.ReconcilerConfig())
	if err != nil {
		return err
	}

	groups, err := service.Groups(s.context(), period)
	if err != nil {
		return err
	}

	return s.render(&reporter.GroupsReport{Period: period, Groups: groups})
}

func runSettle(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	payment, err := buildPayment()
	if err != nil {
		return errors.ValidationError(errors.CodeInvalidData, "payment", paymentID, err)
	}

	if err := s.readObligations(obligationsFile); err != nil {
		return err
	}

	service, err := reconciler.NewSettlementService(s.records, s.config.ReconcilerConfig())
	if err != nil {
		return err
	}

	group, validation, err := service.Check(s.context(), payment, groupID, period)
	if err != nil {
		return err
	}

	report := &reporter.SettlementReport{
		Payment:    payment,
		Group:      group,
		Validation: validation,
	}

	if dryRun || !validation.Valid {
		if err := s.render(report); err != nil {
			return err
		}
		return validation.Err()
	}

	outcome, err := service.Execute(s.context(), payment, groupID, period)
	if err != nil {
		return err
	}

	report.Group = outcome.Group
	report.Validation = outcome.Validation
	report.Records = outcome.Records
	report.Executed = true

	return s.render(report)
}
