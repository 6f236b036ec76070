// Package matcher provides the line-item similarity scorer, the bill diff
// engine and the match classifier.
//
// Two snapshots of the same statement (the stored one and a fresh re-import)
// are compared item by item:
//  1. Every new item is scored against every not-yet-matched old item
//  2. The best-scoring old item is accepted if its score is above the
//     confidence threshold; it then leaves the pool
//  3. Default selections are derived (keep old, add unmatched new, do not
//     re-add confidently matched new items)
//  4. Caller overrides are applied and a ChangeSet is produced
//
// Matching is greedy in input order, not globally optimal.
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultMatchingConfig())
//	result, err := engine.DiffSnapshots(stored, imported)
//	changes, err := result.ChangeSet(overrides)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchingConfig holds the scoring weights and thresholds.
type MatchingConfig struct {
	// Weights for the three binary scoring criteria
	Weights MatchingWeights `json:"weights" mapstructure:"weights"`

	// AmountTolerance is the exclusive bound under which two amounts are equal
	AmountTolerance decimal.Decimal `json:"amount_tolerance" mapstructure:"-"`

	// MinConfidenceScore is the exclusive lower bound for accepting a match
	MinConfidenceScore float64 `json:"min_confidence_score" mapstructure:"threshold"`

	// PartialDescriptionRatio is the share of the description weight granted
	// when one description contains the other
	PartialDescriptionRatio float64 `json:"partial_description_ratio" mapstructure:"partial_description_ratio"`
}

// MatchingWeights defines the relative importance of the matching criteria
type MatchingWeights struct {
	DateWeight        float64 `json:"date_weight" mapstructure:"date"`
	AmountWeight      float64 `json:"amount_weight" mapstructure:"amount"`
	DescriptionWeight float64 `json:"description_weight" mapstructure:"description"`
}

// DefaultMatchingConfig returns the standard configuration:
// date 0.3, amount 0.4, description 0.3, threshold 0.7, tolerance 0.01.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Weights: MatchingWeights{
			DateWeight:        0.3,
			AmountWeight:      0.4,
			DescriptionWeight: 0.3,
		},
		AmountTolerance:         decimal.New(1, -2),
		MinConfidenceScore:      0.7,
		PartialDescriptionRatio: 0.5,
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.MinConfidenceScore < 0.0 || mc.MinConfidenceScore >= 1.0 {
		return fmt.Errorf("minimum confidence score must be in [0.0, 1.0): %f", mc.MinConfidenceScore)
	}

	if mc.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", mc.AmountTolerance)
	}

	if mc.PartialDescriptionRatio < 0.0 || mc.PartialDescriptionRatio > 1.0 {
		return fmt.Errorf("partial description ratio must be between 0.0 and 1.0: %f", mc.PartialDescriptionRatio)
	}

	if err := mc.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	return nil
}

// Validate checks if the matching weights are valid
func (mw *MatchingWeights) Validate() error {
	if mw.DateWeight < 0.0 || mw.DateWeight > 1.0 {
		return fmt.Errorf("date weight must be between 0.0 and 1.0: %f", mw.DateWeight)
	}

	if mw.AmountWeight < 0.0 || mw.AmountWeight > 1.0 {
		return fmt.Errorf("amount weight must be between 0.0 and 1.0: %f", mw.AmountWeight)
	}

	if mw.DescriptionWeight < 0.0 || mw.DescriptionWeight > 1.0 {
		return fmt.Errorf("description weight must be between 0.0 and 1.0: %f", mw.DescriptionWeight)
	}

	// Weights should sum to approximately 1.0 so scores stay in [0, 1]
	total := mw.DateWeight + mw.AmountWeight + mw.DescriptionWeight
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("weights should sum to 1.0, got %f", total)
	}

	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}

	clone := *mc
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Date: %.2f, Amount: %.2f, Description: %.2f, Threshold: %.2f, Tolerance: %s}",
		mc.Weights.DateWeight, mc.Weights.AmountWeight, mc.Weights.DescriptionWeight,
		mc.MinConfidenceScore, mc.AmountTolerance.String())
}
