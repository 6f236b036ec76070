package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date layout used for comparisons and serialization
const DateLayout = "2006-01-02"

// LineItem represents one line of a statement (card bill, bank statement).
// A LineItem is immutable once fetched; a re-imported record is a distinct
// value and is related to an existing one only through scoring.
type LineItem struct {
	ID                    string          `json:"id" csv:"id"`
	Date                  time.Time       `json:"date" csv:"date"`
	Amount                decimal.Decimal `json:"amount" csv:"amount"`
	OriginDescription     string          `json:"originDescription" csv:"description"`
	ClassifiedDescription string          `json:"classifiedDescription,omitempty" csv:"classified_description"`
	OriginTag             string          `json:"originTag" csv:"origin"`
	StatementID           string          `json:"statementId" csv:"statement_id"`
}

// NewLineItem creates a new LineItem instance
func NewLineItem(id string, date time.Time, amount decimal.Decimal, description, originTag, statementID string) LineItem {
	return LineItem{
		ID:                id,
		Date:              CalendarDate(date),
		Amount:            amount,
		OriginDescription: description,
		OriginTag:         originTag,
		StatementID:       statementID,
	}
}

// Validate performs basic validation on the LineItem
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.ID) == "" {
		return fmt.Errorf("line item ID cannot be empty")
	}

	if li.Date.IsZero() {
		return fmt.Errorf("line item %s: date cannot be zero", li.ID)
	}

	return nil
}

// DateKey returns the calendar date as YYYY-MM-DD
func (li LineItem) DateKey() string {
	return li.Date.Format(DateLayout)
}

// String returns a string representation of the LineItem
func (li LineItem) String() string {
	return fmt.Sprintf("LineItem{ID: %s, Date: %s, Amount: %s, Description: %s}",
		li.ID, li.DateKey(), li.Amount.StringFixed(2), li.OriginDescription)
}

// MarshalJSON implements custom JSON marshaling for LineItem
func (li LineItem) MarshalJSON() ([]byte, error) {
	type Alias LineItem
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		Alias
	}{
		Amount: li.Amount.StringFixed(2),
		Date:   li.DateKey(),
		Alias:  (Alias)(li),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for LineItem
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type Alias LineItem
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(li),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	li.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	li.Date, err = ParseTimeWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	li.Date = CalendarDate(li.Date)

	return nil
}

// AbsAmount returns the absolute value of the line item amount
func (li LineItem) AbsAmount() decimal.Decimal {
	return li.Amount.Abs()
}

// StatementSnapshot is the full set of line items of one billing cycle at one
// point in time.
type StatementSnapshot struct {
	StatementID string     `json:"statementId"`
	Items       []LineItem `json:"items"`
}

// IDs returns the ids of the snapshot items in order
func (s StatementSnapshot) IDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Total returns the signed sum of all item amounts
func (s StatementSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// Validate checks item fields, duplicate ids and statement membership
func (s StatementSnapshot) Validate() error {
	if strings.TrimSpace(s.StatementID) == "" {
		return fmt.Errorf("statement ID cannot be empty")
	}

	seen := make(map[string]bool, len(s.Items))
	for _, item := range s.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate line item ID %s in statement %s", item.ID, s.StatementID)
		}
		seen[item.ID] = true

		if item.StatementID != "" && item.StatementID != s.StatementID {
			return fmt.Errorf("line item %s belongs to statement %s, not %s", item.ID, item.StatementID, s.StatementID)
		}
	}

	return nil
}

// MatchCandidate is an accepted pairing of an old and a new line item
type MatchCandidate struct {
	OldID   string   `json:"oldId"`
	NewID   string   `json:"newId"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// ChangeSet is what the caller applies to the record store after a diff.
// ToKeep and ToRemove together cover every old-snapshot id exactly once.
type ChangeSet struct {
	ToAdd    []LineItem `json:"toAdd"`
	ToKeep   []string   `json:"toKeep"`
	ToRemove []string   `json:"toRemove"`
}

// IsNoop reports whether applying the change set would change nothing
func (cs ChangeSet) IsNoop() bool {
	return len(cs.ToAdd) == 0 && len(cs.ToRemove) == 0
}

// Utility functions for type conversion and validation

// CalendarDate strips the time of day and location, keeping the calendar date
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// IsCalendarDate reports whether t is already a UTC-midnight calendar date
func IsCalendarDate(t time.Time) bool {
	return t.Location() == time.UTC && t.Equal(CalendarDate(t))
}

// SameCalendarDate compares two times by calendar date only
func SameCalendarDate(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

// MonthKey returns the YYYY-MM period of a date
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		DateLayout,            // "2006-01-02"
		time.RFC3339,          // "2006-01-02T15:04:05Z07:00"
		"2006-01-02 15:04:05", // "2006-01-02 15:04:05"
		"02/01/2006",          // "02/01/2006"
		"2006/01/02",          // "2006/01/02"
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// CompareAmountsWithTolerance reports whether |a-b| is strictly below tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}

// SumAbs returns the sum of absolute values
func SumAbs(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Abs())
	}
	return total
}

// NormalizeDescription trims and case-folds a description for comparison
func NormalizeDescription(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
