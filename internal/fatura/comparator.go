package fatura

import (
	"strings"

	"fatura-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// MatchedPair is a projected obligation that posted exactly as expected
type MatchedPair struct {
	Projected models.ProjectedObligation `json:"projected"`
	Actual    models.LineItem            `json:"actual"`
}

// ChangedPair is a projected obligation that posted with a different amount
// or date under a similar establishment name
type ChangedPair struct {
	Projected models.ProjectedObligation `json:"projected"`
	Actual    models.LineItem            `json:"actual"`
	NewAmount decimal.Decimal            `json:"newAmount"`
	Delta     decimal.Decimal            `json:"delta"`
}

// ComparisonResult is the outcome of comparing a projected statement with
// what actually posted. It is computed fresh on every call.
type ComparisonResult struct {
	Matched         []MatchedPair                `json:"matched"`
	Changed         []ChangedPair                `json:"changed"`
	Removed         []models.ProjectedObligation `json:"removed"`
	Added           []models.LineItem            `json:"added"`
	TotalProjected  decimal.Decimal              `json:"totalProjected"`
	TotalActual     decimal.Decimal              `json:"totalActual"`
	TotalDifference decimal.Decimal              `json:"totalDifference"`
	Warnings        []string                     `json:"warnings"`
}

// HasDrift reports whether anything differs between projection and reality
func (r *ComparisonResult) HasDrift() bool {
	return len(r.Changed) > 0 || len(r.Removed) > 0 || len(r.Added) > 0 || !r.TotalDifference.IsZero()
}

// Comparator compares projected obligations with posted line items
type Comparator struct {
	config  *Config
	aliases map[string]string
}

// NewComparator creates a comparator; a nil config uses DefaultConfig
func NewComparator(config *Config) *Comparator {
	if config == nil {
		config = DefaultConfig()
	}

	// Invalid entries are left out; Validate reports them
	aliases, _ := config.aliasTable()

	return &Comparator{config: config, aliases: aliases}
}

// Compare compares projected and actual under the default configuration
func Compare(projected []models.ProjectedObligation, actual []models.LineItem) *ComparisonResult {
	return NewComparator(nil).Compare(projected, actual)
}

// Compare pairs projected obligations with actual line items in two passes.
// The first pass pairs items with the same establishment, amount and date.
// The second pass gives every leftover projected item the first remaining
// actual item whose establishment equals or contains its own (or is
// contained by it), and reports the pair as changed.
func (c *Comparator) Compare(projected []models.ProjectedObligation, actual []models.LineItem) *ComparisonResult {
	result := &ComparisonResult{
		Matched:  []MatchedPair{},
		Changed:  []ChangedPair{},
		Removed:  []models.ProjectedObligation{},
		Added:    []models.LineItem{},
		Warnings: []string{},
	}

	consumed := make([]bool, len(actual))
	paired := make([]bool, len(projected))

	actualKeys := make([]string, len(actual))
	actualNames := make([]string, len(actual))
	for i, a := range actual {
		actualNames[i] = c.canonical(a.OriginDescription)
		actualKeys[i] = compositeKey(actualNames[i], a.Amount, a.DateKey())
	}

	for i, p := range projected {
		key := compositeKey(c.canonical(p.Label()), p.Amount, p.DueDate.Format(models.DateLayout))
		for j := range actual {
			if !consumed[j] && actualKeys[j] == key {
				consumed[j] = true
				paired[i] = true
				result.Matched = append(result.Matched, MatchedPair{Projected: p, Actual: actual[j]})
				break
			}
		}
	}

	for i, p := range projected {
		if paired[i] {
			continue
		}

		name := c.canonical(p.Label())
		for j := range actual {
			if consumed[j] || !c.similarName(name, actualNames[j]) {
				continue
			}
			consumed[j] = true
			paired[i] = true
			result.Changed = append(result.Changed, ChangedPair{
				Projected: p,
				Actual:    actual[j],
				NewAmount: actual[j].Amount,
				Delta:     actual[j].Amount.Sub(p.Amount),
			})
			break
		}

		if !paired[i] {
			result.Removed = append(result.Removed, p)
		}
	}

	for j, a := range actual {
		if !consumed[j] {
			result.Added = append(result.Added, a)
		}
	}

	result.TotalProjected = decimal.Zero
	for _, p := range projected {
		result.TotalProjected = result.TotalProjected.Add(p.Amount.Abs())
	}
	result.TotalActual = decimal.Zero
	for _, a := range actual {
		result.TotalActual = result.TotalActual.Add(a.Amount.Abs())
	}
	result.TotalDifference = result.TotalActual.Sub(result.TotalProjected)

	if result.TotalDifference.Abs().GreaterThan(c.config.DriftTolerance) {
		result.Warnings = append(result.Warnings,
			"Diferença entre projetado e realizado: "+result.TotalDifference.StringFixed(2))
	}

	return result
}

// canonical normalizes a name and resolves it through the alias table
func (c *Comparator) canonical(name string) string {
	n := models.NormalizeDescription(name)
	if target, ok := c.aliases[n]; ok {
		return target
	}
	return n
}

// similarName reports whether two canonical names are equal or one contains
// the other
func (c *Comparator) similarName(a, b string) bool {
	if a == b {
		return a != ""
	}
	if len(a) < c.config.MinFuzzyNameSize || len(b) < c.config.MinFuzzyNameSize {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func compositeKey(name string, amount decimal.Decimal, date string) string {
	return name + "|" + amount.StringFixed(2) + "|" + date
}
