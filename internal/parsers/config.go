package parsers

import (
	"fmt"
	"strings"
)

// LineItemParserConfig describes the CSV layout of a statement export
type LineItemParserConfig struct {
	Name              string            `json:"name" yaml:"name"`
	IDColumn          string            `json:"id_column" yaml:"id_column"`
	DateColumn        string            `json:"date_column" yaml:"date_column"`
	AmountColumn      string            `json:"amount_column" yaml:"amount_column"`
	DescriptionColumn string            `json:"description_column" yaml:"description_column"`
	ClassifiedColumn  string            `json:"classified_column,omitempty" yaml:"classified_column,omitempty"`
	OriginColumn      string            `json:"origin_column,omitempty" yaml:"origin_column,omitempty"`
	StatementColumn   string            `json:"statement_column,omitempty" yaml:"statement_column,omitempty"`
	DateFormat        string            `json:"date_format,omitempty" yaml:"date_format,omitempty"`
	DecimalComma      bool              `json:"decimal_comma" yaml:"decimal_comma"`
	HasHeader         bool              `json:"has_header" yaml:"has_header"`
	Delimiter         rune              `json:"delimiter" yaml:"delimiter"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty" yaml:"column_aliases,omitempty"`
	DefaultOriginTag  string            `json:"default_origin_tag,omitempty" yaml:"default_origin_tag,omitempty"`
}

// Validate checks if the line item parser configuration is valid
func (c *LineItemParserConfig) Validate() error {
	if strings.TrimSpace(c.IDColumn) == "" {
		return fmt.Errorf("id column cannot be empty")
	}

	if strings.TrimSpace(c.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}

	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}

	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (c *LineItemParserConfig) GetColumnName(standardName string) string {
	if alias, exists := c.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "id":
		return c.IDColumn
	case "date":
		return c.DateColumn
	case "amount":
		return c.AmountColumn
	case "description":
		return c.DescriptionColumn
	case "classified_description":
		return c.ClassifiedColumn
	case "origin":
		return c.OriginColumn
	case "statement_id":
		return c.StatementColumn
	default:
		return standardName
	}
}

// DefaultLineItemParserConfig returns the layout written by the record store export
func DefaultLineItemParserConfig() *LineItemParserConfig {
	return &LineItemParserConfig{
		Name:              "standard",
		IDColumn:          "id",
		DateColumn:        "date",
		AmountColumn:      "amount",
		DescriptionColumn: "description",
		ClassifiedColumn:  "classified_description",
		OriginColumn:      "origin",
		StatementColumn:   "statement_id",
		HasHeader:         true,
		Delimiter:         ',',
		ColumnAliases:     make(map[string]string),
	}
}

// Predefined statement layouts
var (
	// StandardLayout is the comma separated layout with ISO dates
	StandardLayout = DefaultLineItemParserConfig()

	// BrazilianCardLayout is the semicolon separated card export with
	// day-first dates and decimal commas
	BrazilianCardLayout = &LineItemParserConfig{
		Name:              "br-card",
		IDColumn:          "identificador",
		DateColumn:        "data",
		AmountColumn:      "valor",
		DescriptionColumn: "descricao",
		ClassifiedColumn:  "categoria",
		DateFormat:        "02/01/2006",
		DecimalComma:      true,
		HasHeader:         true,
		Delimiter:         ';',
		ColumnAliases:     make(map[string]string),
	}
)

// GetLayout returns a predefined layout by name
func GetLayout(name string) *LineItemParserConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard":
		return StandardLayout
	case "br-card":
		return BrazilianCardLayout
	default:
		return nil
	}
}

// ListLayouts returns all predefined layouts
func ListLayouts() []*LineItemParserConfig {
	return []*LineItemParserConfig{
		StandardLayout,
		BrazilianCardLayout,
	}
}

// ObligationParserConfig describes the CSV layout of a projected obligations export
type ObligationParserConfig struct {
	IDColumn            string `json:"id_column" yaml:"id_column"`
	EstablishmentColumn string `json:"establishment_column" yaml:"establishment_column"`
	DescriptionColumn   string `json:"description_column" yaml:"description_column"`
	AmountColumn        string `json:"amount_column" yaml:"amount_column"`
	DueDateColumn       string `json:"due_date_column" yaml:"due_date_column"`
	OriginColumn        string `json:"origin_column" yaml:"origin_column"`
	GroupColumn         string `json:"group_column" yaml:"group_column"`
	InstallmentColumn   string `json:"installment_column" yaml:"installment_column"`
	ReconciledColumn    string `json:"reconciled_column" yaml:"reconciled_column"`
	StatementColumn     string `json:"statement_column" yaml:"statement_column"`
	DateFormat          string `json:"date_format,omitempty" yaml:"date_format,omitempty"`
	DecimalComma        bool   `json:"decimal_comma" yaml:"decimal_comma"`
	Delimiter           rune   `json:"delimiter" yaml:"delimiter"`
}

// DefaultObligationParserConfig returns the standard obligations layout
func DefaultObligationParserConfig() *ObligationParserConfig {
	return &ObligationParserConfig{
		IDColumn:            "id",
		EstablishmentColumn: "establishment",
		DescriptionColumn:   "description",
		AmountColumn:        "amount",
		DueDateColumn:       "due_date",
		OriginColumn:        "origin",
		GroupColumn:         "group_id",
		InstallmentColumn:   "installment",
		ReconciledColumn:    "reconciled",
		StatementColumn:     "statement_id",
		Delimiter:           ',',
	}
}

// Validate checks if the obligation parser configuration is valid
func (c *ObligationParserConfig) Validate() error {
	if strings.TrimSpace(c.IDColumn) == "" {
		return fmt.Errorf("id column cannot be empty")
	}

	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}

	if strings.TrimSpace(c.DueDateColumn) == "" {
		return fmt.Errorf("due date column cannot be empty")
	}

	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}

	return nil
}
