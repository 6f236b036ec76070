// Package reporter renders the results of the bill diff, settlement and
// fatura drift operations.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per line item for spreadsheet applications
//
// Report types available:
//   - DiffReport: matches, default selections and the resulting ChangeSet
//   - ClassificationReport: per-row status with the resulting total
//   - GroupsReport: settlement groups of a period
//   - SettlementReport: validation outcome and posted records of a payment
//   - ComparisonReport: projected vs actual obligations of a statement
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.GenerateReport(&reporter.ClassificationReport{
//		Classification: classification,
//		Total:          total,
//	}, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"fatura-reconciler/internal/fatura"
	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/settlement"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeMatched  bool `json:"include_matched"`
	IncludeReasons  bool `json:"include_reasons"`
	IncludeWarnings bool `json:"include_warnings"`

	// Console formatting options
	TableMaxWidth int `json:"table_max_width"`
	MaxListItems  int `json:"max_list_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	SortByAmount bool `json:"sort_by_amount"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatConsole,
		IncludeMatched:  true,
		IncludeReasons:  false,
		IncludeWarnings: true,
		TableMaxWidth:   120,
		MaxListItems:    50,
		CSVDelimiter:    ',',
		CSVHeaders:      true,
		SortByAmount:    false,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}

	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}

	return nil
}

// DiffReport is the outcome of a bill diff with the ChangeSet it produces
type DiffReport struct {
	StatementID string              `json:"statement_id"`
	Diff        *matcher.DiffResult `json:"diff"`
	Changes     *models.ChangeSet   `json:"changes"`
}

// ClassificationReport is a classification with the total of its selection
type ClassificationReport struct {
	StatementID    string                  `json:"statement_id"`
	Classification *matcher.Classification `json:"classification"`
	Total          matcher.ResultingTotal  `json:"total"`
	Applied        bool                    `json:"applied"`
}

// GroupsReport lists the settlement groups of a period
type GroupsReport struct {
	Period string                   `json:"period"`
	Groups []models.ObligationGroup `json:"groups"`
}

// SettlementReport is the validation and, when executed, the posted records
// of a payment against a group
type SettlementReport struct {
	Payment    models.LineItem             `json:"payment"`
	Group      models.ObligationGroup      `json:"group"`
	Validation settlement.ValidationResult `json:"validation"`
	Records    []models.LineItem           `json:"records,omitempty"`
	Executed   bool                        `json:"executed"`
}

// ComparisonReport is a fatura drift check of one statement
type ComparisonReport struct {
	Period      string                   `json:"period"`
	StatementID string                   `json:"statement_id"`
	Result      *fatura.ComparisonResult `json:"result"`
}

// ReportGenerator renders reports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders one of the report types and writes it to writer
func (rg *ReportGenerator) GenerateReport(report interface{}, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(report interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(report interface{}, writer io.Writer) error {
	switch r := report.(type) {
	case *DiffReport:
		rg.printDiff(r, writer)
	case *ClassificationReport:
		rg.printClassification(r, writer)
	case *GroupsReport:
		rg.printGroups(r, writer)
	case *SettlementReport:
		rg.printSettlement(r, writer)
	case *ComparisonReport:
		rg.printComparison(r, writer)
	default:
		return fmt.Errorf("unsupported report type: %T", report)
	}
	return nil
}

// generateCSVReport writes one row per line item or obligation
func (rg *ReportGenerator) generateCSVReport(report interface{}, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	var headers []string
	var rows [][]string

	switch r := report.(type) {
	case *DiffReport:
		headers = []string{"Action", "ID", "Date", "Amount", "Description", "Matched_With", "Score"}
		rows = rg.diffRows(r)
	case *ClassificationReport:
		headers = []string{"Status", "Key", "Old_ID", "New_ID", "Date", "Amount", "Description", "Score", "Selected", "Differing_Fields"}
		rows = rg.classificationRows(r)
	case *GroupsReport:
		headers = []string{"Group", "Period", "Obligation_ID", "Establishment", "Due_Date", "Amount", "Installment", "Reconciled"}
		rows = rg.groupRows(r.Groups)
	case *SettlementReport:
		headers = []string{"ID", "Date", "Amount", "Description", "Classified_Description", "Origin", "Statement"}
		for _, rec := range r.Records {
			rows = append(rows, []string{rec.ID, rec.DateKey(), rec.Amount.StringFixed(2), rec.OriginDescription,
				rec.ClassifiedDescription, rec.OriginTag, rec.StatementID})
		}
	case *ComparisonReport:
		headers = []string{"Outcome", "Projected_ID", "Actual_ID", "Name", "Date", "Projected_Amount", "Actual_Amount", "Delta"}
		rows = rg.comparisonRows(r.Result)
	default:
		return fmt.Errorf("unsupported report type: %T", report)
	}

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, row := range rows {
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Console sections

func (rg *ReportGenerator) printDiff(r *DiffReport, writer io.Writer) {
	fmt.Fprintf(writer, "BILL DIFF REPORT\n")
	if r.StatementID != "" {
		fmt.Fprintf(writer, "Statement: %s\n", r.StatementID)
	}
	fmt.Fprintf(writer, "Fingerprint: %s\n\n", r.Diff.Fingerprint)

	summary := r.Diff.Summary
	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Old items:     %d\n", summary.TotalOld)
	fmt.Fprintf(writer, "New items:     %d\n", summary.TotalNew)
	fmt.Fprintf(writer, "Matched:       %d (%.1f%%)\n", summary.Matched, rg.calculatePercentage(summary.Matched, summary.TotalNew))
	fmt.Fprintf(writer, "Unmatched old: %d\n", summary.UnmatchedOld)
	fmt.Fprintf(writer, "Unmatched new: %d\n", summary.UnmatchedNew)
	fmt.Fprintf(writer, "Matched value: %s\n\n", summary.MatchedAmount.StringFixed(2))

	if rg.config.IncludeMatched && len(r.Diff.Matches) > 0 {
		fmt.Fprintf(writer, "=== MATCHES ===\n")
		tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "OLD\tNEW\tSCORE\tREASONS\n")
		for i, m := range r.Diff.Matches {
			if rg.truncated(tw, i, len(r.Diff.Matches)) {
				break
			}
			reasons := ""
			if rg.config.IncludeReasons {
				reasons = strings.Join(m.Reasons, "; ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", m.OldID, m.NewID, m.Score, reasons)
		}
		tw.Flush()
		fmt.Fprintf(writer, "\n")
	}

	if r.Changes == nil {
		return
	}

	fmt.Fprintf(writer, "=== CHANGES ===\n")
	fmt.Fprintf(writer, "Add:    %d\n", len(r.Changes.ToAdd))
	fmt.Fprintf(writer, "Keep:   %d\n", len(r.Changes.ToKeep))
	fmt.Fprintf(writer, "Remove: %d\n", len(r.Changes.ToRemove))
	if r.Changes.IsNoop() {
		fmt.Fprintf(writer, "No changes to apply\n")
		return
	}

	if len(r.Changes.ToAdd) > 0 {
		fmt.Fprintf(writer, "\nTo add (%d):\n", len(r.Changes.ToAdd))
		rg.printLineItems(rg.sortedItems(r.Changes.ToAdd), writer)
	}
	if len(r.Changes.ToRemove) > 0 {
		fmt.Fprintf(writer, "\nTo remove (%d):\n", len(r.Changes.ToRemove))
		for i, id := range r.Changes.ToRemove {
			if rg.truncated(writer, i, len(r.Changes.ToRemove)) {
				break
			}
			fmt.Fprintf(writer, "  %d. %s\n", i+1, id)
		}
	}
}

func (rg *ReportGenerator) printClassification(r *ClassificationReport, writer io.Writer) {
	fmt.Fprintf(writer, "IMPORT CLASSIFICATION\n")
	if r.StatementID != "" {
		fmt.Fprintf(writer, "Statement: %s\n", r.StatementID)
	}
	fmt.Fprintf(writer, "Fingerprint: %s\n\n", r.Classification.Fingerprint)

	counts := r.Classification.Counts()
	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	for _, status := range []matcher.Status{matcher.StatusNew, matcher.StatusExact, matcher.StatusNearExact, matcher.StatusVanished} {
		fmt.Fprintf(writer, "%-11s %d\n", status.String()+":", counts[status])
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== ROWS ===\n")
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SEL\tSTATUS\tKEY\tDATE\tAMOUNT\tDESCRIPTION\tSCORE\tDIFFERS\n")
	rows := 0
	for i, p := range r.Classification.Pairs {
		if !rg.config.IncludeMatched && p.Status == matcher.StatusExact {
			continue
		}
		if rg.truncated(tw, rows, len(r.Classification.Pairs)-i+rows) {
			break
		}
		rows++

		item := p.New
		if item == nil {
			item = p.Old
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			checkbox(p.DefaultSelected),
			p.Status,
			p.Key(),
			item.DateKey(),
			item.Amount.StringFixed(2),
			rg.clip(item.OriginDescription),
			scoreLabel(p),
			strings.Join(p.DifferingFields, ","))
	}
	tw.Flush()
	fmt.Fprintf(writer, "\n")

	rg.printResultingTotal(r.Total, writer)

	if r.Applied {
		fmt.Fprintf(writer, "\nChanges applied\n")
	}
}

func (rg *ReportGenerator) printResultingTotal(total matcher.ResultingTotal, writer io.Writer) {
	fmt.Fprintf(writer, "=== RESULTING TOTAL ===\n")
	fmt.Fprintf(writer, "Will create: %d\n", total.WillCreate)
	fmt.Fprintf(writer, "Will keep:   %d\n", total.WillKeep)
	fmt.Fprintf(writer, "Will delete: %d\n", total.WillDelete)
	fmt.Fprintf(writer, "Final value:    %s\n", total.FinalValue.StringFixed(2))
	fmt.Fprintf(writer, "Expected value: %s\n", total.ExpectedValue.StringFixed(2))
	if total.IsBalanced {
		fmt.Fprintf(writer, "Balanced: yes\n")
	} else {
		fmt.Fprintf(writer, "Balanced: NO (difference %s)\n", total.Difference().StringFixed(2))
	}
}

func (rg *ReportGenerator) printGroups(r *GroupsReport, writer io.Writer) {
	fmt.Fprintf(writer, "SETTLEMENT GROUPS\n")
	if r.Period != "" {
		fmt.Fprintf(writer, "Period: %s\n", r.Period)
	}
	fmt.Fprintf(writer, "Groups: %d\n\n", len(r.Groups))

	for _, g := range r.Groups {
		status := "pending"
		if g.HasReconciled() {
			status = "reconciled"
		}
		fmt.Fprintf(writer, "%s  [%s]  %d item(s)  total %s  %s\n",
			g.GroupID, g.Period, len(g.Items), g.TotalValue.StringFixed(2), status)
		if len(g.Establishments) > 0 {
			fmt.Fprintf(writer, "  %s\n", rg.clip(strings.Join(g.Establishments, ", ")))
		}
		for i, o := range g.Items {
			if rg.truncated(writer, i, len(g.Items)) {
				break
			}
			fmt.Fprintf(writer, "  %d. %s %s %s %s\n", i+1, o.ID, o.DueDate.Format(models.DateLayout),
				o.Amount.StringFixed(2), obligationLabel(o))
		}
	}
}

func (rg *ReportGenerator) printSettlement(r *SettlementReport, writer io.Writer) {
	fmt.Fprintf(writer, "SETTLEMENT\n")
	fmt.Fprintf(writer, "Payment: %s %s %s\n", r.Payment.ID, r.Payment.DateKey(), r.Payment.Amount.StringFixed(2))
	fmt.Fprintf(writer, "Group:   %s (%d item(s), total %s)\n\n", r.Group.GroupID, len(r.Group.Items), r.Group.TotalValue.StringFixed(2))

	if r.Validation.Valid {
		fmt.Fprintf(writer, "Validation: OK\n")
	} else {
		fmt.Fprintf(writer, "Validation: FAILED\n")
	}
	for _, e := range r.Validation.Errors {
		fmt.Fprintf(writer, "  ERROR: %s\n", e)
	}
	if rg.config.IncludeWarnings {
		for _, w := range r.Validation.Warnings {
			fmt.Fprintf(writer, "  WARNING: %s\n", w)
		}
	}

	if !r.Executed {
		return
	}

	fmt.Fprintf(writer, "\n=== POSTED RECORDS (%d) ===\n", len(r.Records))
	rg.printLineItems(r.Records, writer)
}

func (rg *ReportGenerator) printComparison(r *ComparisonReport, writer io.Writer) {
	result := r.Result

	fmt.Fprintf(writer, "FATURA DRIFT REPORT\n")
	if r.StatementID != "" {
		fmt.Fprintf(writer, "Statement: %s\n", r.StatementID)
	}
	if r.Period != "" {
		fmt.Fprintf(writer, "Period: %s\n", r.Period)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Matched: %d\n", len(result.Matched))
	fmt.Fprintf(writer, "Changed: %d\n", len(result.Changed))
	fmt.Fprintf(writer, "Removed: %d\n", len(result.Removed))
	fmt.Fprintf(writer, "Added:   %d\n\n", len(result.Added))

	fmt.Fprintf(writer, "=== FINANCIAL SUMMARY ===\n")
	fmt.Fprintf(writer, "Total projected:  %s\n", result.TotalProjected.StringFixed(2))
	fmt.Fprintf(writer, "Total actual:     %s\n", result.TotalActual.StringFixed(2))
	fmt.Fprintf(writer, "Difference:       %s\n", result.TotalDifference.StringFixed(2))
	if !result.TotalDifference.IsZero() && !result.TotalProjected.IsZero() {
		pct := result.TotalDifference.Abs().Div(result.TotalProjected.Abs()).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(writer, "Difference (%%):   %s%%\n", pct.StringFixed(2))
	}
	if !result.HasDrift() {
		fmt.Fprintf(writer, "No drift: the statement matches the projection\n")
	}
	fmt.Fprintf(writer, "\n")

	if len(result.Changed) > 0 {
		fmt.Fprintf(writer, "=== CHANGED ===\n")
		for i, c := range result.Changed {
			if rg.truncated(writer, i, len(result.Changed)) {
				break
			}
			fmt.Fprintf(writer, "  %d. %s: %s -> %s (delta %s)\n", i+1, obligationLabel(c.Projected),
				c.Projected.Amount.StringFixed(2), c.NewAmount.StringFixed(2), c.Delta.StringFixed(2))
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(writer, "=== REMOVED (projected, not billed) ===\n")
		for i, o := range result.Removed {
			if rg.truncated(writer, i, len(result.Removed)) {
				break
			}
			fmt.Fprintf(writer, "  %d. %s %s %s\n", i+1, o.DueDate.Format(models.DateLayout), o.Amount.StringFixed(2), obligationLabel(o))
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(result.Added) > 0 {
		fmt.Fprintf(writer, "=== ADDED (billed, not projected) ===\n")
		rg.printLineItems(rg.sortedItems(result.Added), writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeWarnings {
		for _, w := range result.Warnings {
			fmt.Fprintf(writer, "WARNING: %s\n", w)
		}
	}
}

func (rg *ReportGenerator) printLineItems(items []models.LineItem, writer io.Writer) {
	for i, item := range items {
		if rg.truncated(writer, i, len(items)) {
			break
		}
		fmt.Fprintf(writer, "  %d. ID: %s, Date: %s, Amount: %s, Description: %s\n",
			i+1,
			item.ID,
			item.DateKey(),
			item.Amount.StringFixed(2),
			rg.clip(item.OriginDescription))
	}
}

// CSV rows

func (rg *ReportGenerator) diffRows(r *DiffReport) [][]string {
	var rows [][]string

	matchedWith := make(map[string]models.MatchCandidate, len(r.Diff.Matches))
	for _, m := range r.Diff.Matches {
		matchedWith[m.NewID] = m
	}

	if r.Changes != nil {
		for _, item := range r.Changes.ToAdd {
			rows = append(rows, []string{"add", item.ID, item.DateKey(), item.Amount.StringFixed(2), item.OriginDescription, "", ""})
		}
	}

	if rg.config.IncludeMatched {
		for _, item := range r.Diff.New {
			m, ok := matchedWith[item.ID]
			if !ok {
				continue
			}
			rows = append(rows, []string{"matched", item.ID, item.DateKey(), item.Amount.StringFixed(2), item.OriginDescription,
				m.OldID, fmt.Sprintf("%.2f", m.Score)})
		}
	}

	if r.Changes != nil {
		removed := make(map[string]bool, len(r.Changes.ToRemove))
		for _, id := range r.Changes.ToRemove {
			removed[id] = true
		}
		for _, item := range r.Diff.Old {
			if removed[item.ID] {
				rows = append(rows, []string{"remove", item.ID, item.DateKey(), item.Amount.StringFixed(2), item.OriginDescription, "", ""})
			}
		}
	}

	return rows
}

func (rg *ReportGenerator) classificationRows(r *ClassificationReport) [][]string {
	rows := make([][]string, 0, len(r.Classification.Pairs))
	for _, p := range r.Classification.Pairs {
		if !rg.config.IncludeMatched && p.Status == matcher.StatusExact {
			continue
		}

		var oldID, newID string
		item := p.New
		if p.Old != nil {
			oldID = p.Old.ID
		}
		if p.New != nil {
			newID = p.New.ID
		} else {
			item = p.Old
		}

		rows = append(rows, []string{
			p.Status.String(),
			p.Key(),
			oldID,
			newID,
			item.DateKey(),
			item.Amount.StringFixed(2),
			item.OriginDescription,
			fmt.Sprintf("%.2f", p.Score),
			fmt.Sprintf("%t", p.DefaultSelected),
			strings.Join(p.DifferingFields, ";"),
		})
	}
	return rows
}

func (rg *ReportGenerator) groupRows(groups []models.ObligationGroup) [][]string {
	var rows [][]string
	for _, g := range groups {
		for _, o := range g.Items {
			rows = append(rows, []string{
				g.GroupID,
				g.Period,
				o.ID,
				o.Label(),
				o.DueDate.Format(models.DateLayout),
				o.Amount.StringFixed(2),
				o.InstallmentLabel(),
				fmt.Sprintf("%t", o.Reconciled),
			})
		}
	}
	return rows
}

func (rg *ReportGenerator) comparisonRows(result *fatura.ComparisonResult) [][]string {
	var rows [][]string
	for _, m := range result.Matched {
		rows = append(rows, []string{"matched", m.Projected.ID, m.Actual.ID, m.Projected.Label(),
			m.Actual.DateKey(), m.Projected.Amount.StringFixed(2), m.Actual.Amount.StringFixed(2), "0.00"})
	}
	for _, c := range result.Changed {
		rows = append(rows, []string{"changed", c.Projected.ID, c.Actual.ID, c.Projected.Label(),
			c.Actual.DateKey(), c.Projected.Amount.StringFixed(2), c.NewAmount.StringFixed(2), c.Delta.StringFixed(2)})
	}
	for _, o := range result.Removed {
		rows = append(rows, []string{"removed", o.ID, "", o.Label(),
			o.DueDate.Format(models.DateLayout), o.Amount.StringFixed(2), "", o.Amount.Neg().StringFixed(2)})
	}
	for _, a := range result.Added {
		rows = append(rows, []string{"added", "", a.ID, a.OriginDescription,
			a.DateKey(), "", a.Amount.StringFixed(2), a.Amount.StringFixed(2)})
	}
	return rows
}

// Helper methods

// truncated writes the "and n more" line once the list limit is reached
func (rg *ReportGenerator) truncated(writer io.Writer, index, total int) bool {
	if rg.config.MaxListItems == 0 || index < rg.config.MaxListItems {
		return false
	}
	fmt.Fprintf(writer, "  ... and %d more\n", total-index)
	return true
}

func (rg *ReportGenerator) sortedItems(items []models.LineItem) []models.LineItem {
	if !rg.config.SortByAmount {
		return items
	}
	sorted := make([]models.LineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.Abs().GreaterThan(sorted[j].Amount.Abs())
	})
	return sorted
}

// clip shortens free text so table rows stay within the configured width
func (rg *ReportGenerator) clip(s string) string {
	limit := rg.config.TableMaxWidth / 3
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func checkbox(selected bool) string {
	if selected {
		return "[x]"
	}
	return "[ ]"
}

func scoreLabel(p matcher.ClassifiedPair) string {
	if !p.IsMatched() {
		return "-"
	}
	return fmt.Sprintf("%.2f", p.Score)
}

func obligationLabel(o models.ProjectedObligation) string {
	if installment := o.InstallmentLabel(); installment != "" {
		return o.Label() + " (" + installment + ")"
	}
	return o.Label()
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
