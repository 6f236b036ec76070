// Package fatura compares a projected statement (the obligations expected
// to post in a billing cycle) with the line items that actually posted.
package fatura

import (
	"fmt"
	"sort"

	"fatura-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds the comparator settings. Aliases maps establishment names as
// they appear on either side to a canonical name; keys and values are
// compared after normalization.
type Config struct {
	Aliases          map[string]string `json:"aliases" mapstructure:"aliases" yaml:"aliases"`
	DriftTolerance   decimal.Decimal   `json:"drift_tolerance" mapstructure:"-" yaml:"-"`
	MinFuzzyNameSize int               `json:"min_fuzzy_name_size" mapstructure:"min_fuzzy_name_size" yaml:"min_fuzzy_name_size"`
}

// DefaultConfig returns a configuration without aliases and a 0.01 drift tolerance
func DefaultConfig() *Config {
	return &Config{
		Aliases:          map[string]string{},
		DriftTolerance:   decimal.New(1, -2),
		MinFuzzyNameSize: 1,
	}
}

// Validate checks if the comparator configuration is valid
func (c *Config) Validate() error {
	if c.DriftTolerance.IsNegative() {
		return fmt.Errorf("drift tolerance cannot be negative: %s", c.DriftTolerance)
	}

	if c.MinFuzzyNameSize < 1 {
		return fmt.Errorf("minimum fuzzy name size must be at least 1: %d", c.MinFuzzyNameSize)
	}

	if _, err := c.aliasTable(); err != nil {
		return err
	}

	return nil
}

// aliasTable returns the alias table keyed and valued by normalized names.
// Keys are visited in sorted order and the first entry for a normalized key
// wins, so the table is the same on every call. Empty entries and keys that
// normalize alike but point to different targets are reported in the error
// and left out of the table.
func (c *Config) aliasTable() (map[string]string, error) {
	froms := make([]string, 0, len(c.Aliases))
	for from := range c.Aliases {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	var firstErr error
	table := make(map[string]string, len(froms))
	for _, from := range froms {
		key := models.NormalizeDescription(from)
		target := models.NormalizeDescription(c.Aliases[from])
		if key == "" || target == "" {
			if firstErr == nil {
				firstErr = fmt.Errorf("alias entries cannot be empty: %q -> %q", from, c.Aliases[from])
			}
			continue
		}
		if existing, ok := table[key]; ok {
			if existing != target && firstErr == nil {
				firstErr = fmt.Errorf("conflicting aliases for %q: %q and %q", key, existing, target)
			}
			continue
		}
		table[key] = target
	}

	return table, firstErr
}
