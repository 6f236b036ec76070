package reconciler

import (
	"fmt"
	"strings"
	"time"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"
)

// Preprocessor normalizes a freshly imported snapshot before it is diffed
type Preprocessor struct {
	config *PreprocessingConfig
}

// PreprocessingConfig contains configuration for snapshot preprocessing
type PreprocessingConfig struct {
	// Location in which item timestamps are read before the time of day is
	// dropped. Items that are already calendar dates are left as they are.
	Timezone *time.Location

	// Amounts are rounded to this many decimal places; -1 keeps them as is
	DecimalPlaces int32

	TrimWhitespace bool

	// Items without a StatementID are assigned to the snapshot's statement
	FillStatementID bool
}

// PreprocessingStats reports what preprocessing changed
type PreprocessingStats struct {
	Items               int `json:"items"`
	DatesNormalized     int `json:"dates_normalized"`
	AmountsRounded      int `json:"amounts_rounded"`
	DescriptionsTrimmed int `json:"descriptions_trimmed"`
	StatementIDsFilled  int `json:"statement_ids_filled"`
}

// DefaultPreprocessingConfig returns a default preprocessing configuration
func DefaultPreprocessingConfig() *PreprocessingConfig {
	return &PreprocessingConfig{
		Timezone:        time.UTC,
		DecimalPlaces:   2,
		TrimWhitespace:  true,
		FillStatementID: true,
	}
}

// NewPreprocessor creates a new snapshot preprocessor
func NewPreprocessor(config *PreprocessingConfig) *Preprocessor {
	if config == nil {
		config = DefaultPreprocessingConfig()
	}

	return &Preprocessor{
		config: config,
	}
}

// Preprocess returns a normalized copy of snapshot. The input is not modified.
func (p *Preprocessor) Preprocess(snapshot models.StatementSnapshot) (models.StatementSnapshot, *PreprocessingStats, error) {
	stats := &PreprocessingStats{Items: len(snapshot.Items)}

	if strings.TrimSpace(snapshot.StatementID) == "" {
		return models.StatementSnapshot{}, stats,
			apperrors.ValidationError(apperrors.CodeMissingField, "statement_id", snapshot.StatementID, nil)
	}

	out := models.StatementSnapshot{
		StatementID: snapshot.StatementID,
		Items:       make([]models.LineItem, 0, len(snapshot.Items)),
	}

	for i, item := range snapshot.Items {
		normalized, err := p.preprocessItem(item, snapshot.StatementID, stats)
		if err != nil {
			return models.StatementSnapshot{}, stats,
				apperrors.ValidationError(apperrors.CodeMissingField, fmt.Sprintf("items[%d]", i), item.ID, err)
		}
		out.Items = append(out.Items, normalized)
	}

	return out, stats, nil
}

func (p *Preprocessor) preprocessItem(item models.LineItem, statementID string, stats *PreprocessingStats) (models.LineItem, error) {
	if p.config.TrimWhitespace {
		id := strings.TrimSpace(item.ID)
		description := strings.TrimSpace(item.OriginDescription)
		if description != item.OriginDescription {
			stats.DescriptionsTrimmed++
		}
		item.ID = id
		item.OriginDescription = description
		item.ClassifiedDescription = strings.TrimSpace(item.ClassifiedDescription)
		item.OriginTag = strings.TrimSpace(item.OriginTag)
	}

	// Calendar dates carry no time of day to shift; only timestamps are
	// read in the configured zone
	if !item.Date.IsZero() && !models.IsCalendarDate(item.Date) {
		local := item.Date
		if p.config.Timezone != nil {
			local = local.In(p.config.Timezone)
		}
		normalized := models.CalendarDate(local)
		if !normalized.Equal(item.Date) {
			stats.DatesNormalized++
		}
		item.Date = normalized
	}

	if p.config.DecimalPlaces >= 0 {
		rounded := item.Amount.Round(p.config.DecimalPlaces)
		if !rounded.Equal(item.Amount) {
			stats.AmountsRounded++
		}
		item.Amount = rounded
	}

	if p.config.FillStatementID && item.StatementID == "" {
		item.StatementID = statementID
		stats.StatementIDsFilled++
	}

	if err := item.Validate(); err != nil {
		return item, err
	}

	return item, nil
}
