package matcher

import (
	"math"
	"strings"

	"fatura-reconciler/internal/models"
)

// ScoreBreakdown holds the contribution of each criterion to a score
type ScoreBreakdown struct {
	Date        float64 `json:"date"`
	Amount      float64 `json:"amount"`
	Description float64 `json:"description"`
	Total       float64 `json:"total"`
}

// IsExact reports whether every criterion contributed its full weight
func (sb ScoreBreakdown) IsExact(weights MatchingWeights) bool {
	return sb.Date == weights.DateWeight &&
		sb.Amount == weights.AmountWeight &&
		sb.Description == weights.DescriptionWeight
}

// Score returns the similarity of two line items under the default configuration
func Score(a, b models.LineItem) float64 {
	return DefaultMatchingConfig().Score(a, b)
}

// Score returns the similarity of two line items in [0, 1]
func (mc *MatchingConfig) Score(a, b models.LineItem) float64 {
	return mc.Breakdown(a, b).Total
}

// Breakdown scores two line items criterion by criterion. The result is
// symmetric in a and b.
func (mc *MatchingConfig) Breakdown(a, b models.LineItem) ScoreBreakdown {
	var sb ScoreBreakdown

	if models.SameCalendarDate(a.Date, b.Date) {
		sb.Date = mc.Weights.DateWeight
	}

	if models.CompareAmountsWithTolerance(a.Amount, b.Amount, mc.AmountTolerance) {
		sb.Amount = mc.Weights.AmountWeight
	}

	sb.Description = mc.Weights.DescriptionWeight * descriptionSimilarity(a.OriginDescription, b.OriginDescription, mc.PartialDescriptionRatio)

	// Rounded so that weight sums such as 0.3+0.4 compare exactly against the threshold
	sb.Total = math.Round((sb.Date+sb.Amount+sb.Description)*1e9) / 1e9

	return sb
}

// descriptionSimilarity returns 1 for identical normalized descriptions,
// partial when one contains the other, 0 otherwise
func descriptionSimilarity(a, b string, partial float64) float64 {
	na := models.NormalizeDescription(a)
	nb := models.NormalizeDescription(b)

	if na == nb {
		return 1.0
	}

	if na == "" || nb == "" {
		return 0.0
	}

	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return partial
	}

	return 0.0
}

// generateMatchReasons generates human-readable reasons for a score
func generateMatchReasons(sb ScoreBreakdown, weights MatchingWeights) []string {
	var reasons []string

	if sb.Date > 0 {
		reasons = append(reasons, "Same date")
	} else {
		reasons = append(reasons, "Different date")
	}

	if sb.Amount > 0 {
		reasons = append(reasons, "Exact amount match")
	} else {
		reasons = append(reasons, "Different amount")
	}

	switch {
	case sb.Description == weights.DescriptionWeight:
		reasons = append(reasons, "Identical description")
	case sb.Description > 0:
		reasons = append(reasons, "Partial description match")
	default:
		reasons = append(reasons, "Different description")
	}

	return reasons
}

// differingFields lists the criteria that did not contribute their full weight
func differingFields(sb ScoreBreakdown, weights MatchingWeights) []string {
	var fields []string
	if sb.Date != weights.DateWeight {
		fields = append(fields, "date")
	}
	if sb.Amount != weights.AmountWeight {
		fields = append(fields, "amount")
	}
	if sb.Description != weights.DescriptionWeight {
		fields = append(fields, "description")
	}
	return fields
}
