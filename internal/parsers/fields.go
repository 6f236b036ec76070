package parsers

import (
	"fmt"
	"strings"
	"time"

	"fatura-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// parseAmount parses a monetary amount. With decimalComma the value uses
// '.' for thousands and ',' for decimals ("1.234,56").
func parseAmount(raw string, decimalComma bool) (decimal.Decimal, error) {
	if decimalComma {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	return models.ParseDecimalFromString(raw)
}

// parseDate parses a calendar date with an explicit layout, or tries the
// common layouts when none is configured
func parseDate(raw, layout string) (time.Time, error) {
	if layout == "" {
		t, err := models.ParseTimeWithFormats(raw)
		if err != nil {
			return time.Time{}, err
		}
		return models.CalendarDate(t), nil
	}

	t, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("date '%s' does not match layout %s: %w", raw, layout, err)
	}
	return models.CalendarDate(t), nil
}

// parseInstallment parses "n/m" into its two numbers; an empty value is 0/0
func parseInstallment(raw string) (int, int, error) {
	if raw == "" {
		return 0, 0, nil
	}

	var current, total int
	if _, err := fmt.Sscanf(raw, "%d/%d", &current, &total); err != nil {
		return 0, 0, fmt.Errorf("installment '%s' is not in n/m form: %w", raw, err)
	}
	return current, total, nil
}

// parseBool accepts the usual spellings of a boolean flag
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "", "0", "false", "no", "n", "nao", "não":
		return false, nil
	case "1", "true", "yes", "y", "sim", "s":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean '%s'", raw)
	}
}
