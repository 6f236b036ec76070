package matcher

import (
	"fmt"
	"testing"
	"time"

	"fatura-reconciler/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var descriptions = []string{"NETFLIX", "UBER", "UBER *TRIP", "IFOOD", "PADARIA", "MERCADO", "", "SPOTIFY"}

// generateSnapshot builds a deterministic snapshot with repeated dates,
// amounts and descriptions so that collisions and ties occur.
func generateSnapshot(prefix string, size, seed int) []models.LineItem {
	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	items := make([]models.LineItem, 0, size)

	for i := 0; i < size; i++ {
		k := (i*7 + seed*3) % 11
		items = append(items, models.NewLineItem(
			fmt.Sprintf("%s%03d", prefix, i),
			base.AddDate(0, 0, k%4),
			decimal.NewFromInt(int64(-10*(k%3+1))),
			descriptions[(i+seed)%len(descriptions)],
			"CARDX",
			"CARDX_2508",
		))
	}

	return items
}

func TestProperty_ScoreSymmetry(t *testing.T) {
	items := generateSnapshot("S", 24, 1)

	for _, a := range items {
		for _, b := range items {
			assert.Equal(t, Score(a, b), Score(b, a), "%s vs %s", a.ID, b.ID)
		}
	}
}

func TestProperty_SelfDiffIdempotence(t *testing.T) {
	for seed := 0; seed < 5; seed++ {
		items := generateSnapshot("S", 20, seed)

		changes := Diff(items, items)
		assert.Empty(t, changes.ToAdd)
		assert.Empty(t, changes.ToRemove)
		assert.Equal(t, models.StatementSnapshot{Items: items}.IDs(), changes.ToKeep)
	}
}

func TestProperty_AtMostOneMatch(t *testing.T) {
	for seed := 0; seed < 5; seed++ {
		old := generateSnapshot("O", 30, seed)
		new := generateSnapshot("N", 25, seed+1)

		result := NewEngine(nil).Diff(old, new)

		seenOld := make(map[string]bool)
		seenNew := make(map[string]bool)
		for _, m := range result.Matches {
			require.False(t, seenOld[m.OldID], "old %s matched twice", m.OldID)
			require.False(t, seenNew[m.NewID], "new %s matched twice", m.NewID)
			seenOld[m.OldID] = true
			seenNew[m.NewID] = true
			assert.Greater(t, m.Score, DefaultMatchingConfig().MinConfidenceScore)
		}
	}
}

func TestProperty_Coverage(t *testing.T) {
	for seed := 0; seed < 5; seed++ {
		old := generateSnapshot("O", 18, seed)
		new := generateSnapshot("N", 12, seed+2)

		c := Classify(old, new)
		overrides := NewSelectionOverrides(c.Fingerprint)
		for i, p := range c.Pairs {
			overrides.Set(p.Key(), i%2 == 0)
		}

		for _, o := range []*SelectionOverrides{nil, overrides} {
			changes, err := c.ChangeSet(o)
			require.NoError(t, err)

			covered := make(map[string]int)
			for _, id := range changes.ToKeep {
				covered[id]++
			}
			for _, id := range changes.ToRemove {
				covered[id]++
			}

			require.Len(t, covered, len(old))
			for _, item := range old {
				assert.Equal(t, 1, covered[item.ID], "old %s", item.ID)
			}
		}
	}
}

func TestProperty_Deterministic(t *testing.T) {
	old := generateSnapshot("O", 15, 3)
	new := generateSnapshot("N", 15, 4)

	first := Classify(old, new)
	second := Classify(old, new)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Pairs, second.Pairs)
}
