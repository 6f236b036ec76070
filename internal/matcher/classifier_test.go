package matcher

import (
	"testing"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classificationFixture() ([]models.LineItem, []models.LineItem) {
	old := []models.LineItem{
		item("A1", "2025-08-05", "-100.00", "NETFLIX"),
		item("A2", "2025-08-06", "-30.00", "UBER"),
		item("A3", "2025-08-07", "-15.00", "PARKING"),
	}
	new := []models.LineItem{
		item("B1", "2025-08-05", "-100.00", "NETFLIX"),
		item("B2", "2025-08-06", "-30.00", "UBER *TRIP"),
		item("B3", "2025-08-09", "-42.00", "FARMACIA"),
	}
	return old, new
}

func TestClassify_Statuses(t *testing.T) {
	old, new := classificationFixture()

	c := Classify(old, new)
	require.Len(t, c.Pairs, 4)

	assert.Equal(t, StatusExact, c.Pairs[0].Status)
	assert.Equal(t, "A1", c.Pairs[0].Old.ID)
	assert.Equal(t, "B1", c.Pairs[0].New.ID)
	assert.Empty(t, c.Pairs[0].DifferingFields)

	assert.Equal(t, StatusNearExact, c.Pairs[1].Status)
	assert.Equal(t, []string{"description"}, c.Pairs[1].DifferingFields)
	assert.Contains(t, c.Pairs[1].Reasons, "Partial description match")
	assert.True(t, c.Pairs[1].DefaultSelected)

	assert.Equal(t, StatusNew, c.Pairs[2].Status)
	assert.Nil(t, c.Pairs[2].Old)
	assert.True(t, c.Pairs[2].DefaultSelected)

	assert.Equal(t, StatusVanished, c.Pairs[3].Status)
	assert.Nil(t, c.Pairs[3].New)
	assert.False(t, c.Pairs[3].DefaultSelected)

	counts := c.Counts()
	assert.Equal(t, 1, counts[StatusExact])
	assert.Equal(t, 1, counts[StatusNearExact])
	assert.Equal(t, 1, counts[StatusNew])
	assert.Equal(t, 1, counts[StatusVanished])
}

func TestClassify_Scenarios(t *testing.T) {
	t.Run("exact recurring charge", func(t *testing.T) {
		c := Classify(
			[]models.LineItem{item("A", "2025-08-05", "-100.00", "NETFLIX")},
			[]models.LineItem{item("B", "2025-08-05", "-100.00", "NETFLIX")},
		)
		require.Len(t, c.Pairs, 1)
		assert.Equal(t, StatusExact, c.Pairs[0].Status)
		assert.Equal(t, 1.0, c.Pairs[0].Score)

		changes, err := c.ChangeSet(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, changes.ToKeep)
		assert.Empty(t, changes.ToAdd)
		assert.Empty(t, changes.ToRemove)
	})

	t.Run("changed amount below threshold", func(t *testing.T) {
		c := Classify(
			[]models.LineItem{item("A", "2025-08-05", "-50.00", "UBER")},
			[]models.LineItem{item("B", "2025-08-05", "-55.00", "UBER")},
		)
		require.Len(t, c.Pairs, 2)
		assert.Equal(t, StatusNew, c.Pairs[0].Status)
		assert.Equal(t, "B", c.Pairs[0].New.ID)
		assert.Equal(t, StatusVanished, c.Pairs[1].Status)
		assert.Equal(t, "A", c.Pairs[1].Old.ID)

		changes, err := c.ChangeSet(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, changes.ToKeep)
		require.Len(t, changes.ToAdd, 1)
		assert.Equal(t, "B", changes.ToAdd[0].ID)
	})
}

func TestClassification_ComputeResultingTotal(t *testing.T) {
	old, new := classificationFixture()
	c := Classify(old, new)

	t.Run("defaults", func(t *testing.T) {
		total, err := c.ComputeResultingTotal(nil)
		require.NoError(t, err)

		// kept: A1, A2, A3; created: B3
		assert.Equal(t, 1, total.WillCreate)
		assert.Equal(t, 3, total.WillKeep)
		assert.Equal(t, 0, total.WillDelete)
		assert.True(t, total.FinalValue.Equal(decimal.RequireFromString("-187.00")), total.FinalValue.String())
		assert.True(t, total.ExpectedValue.Equal(decimal.RequireFromString("-172.00")), total.ExpectedValue.String())
		assert.False(t, total.IsBalanced)
		assert.True(t, total.Difference().Equal(decimal.RequireFromString("-15.00")))
	})

	t.Run("confirming the vanished item balances", func(t *testing.T) {
		overrides := NewSelectionOverrides(c.Fingerprint).Set(DeleteKey("A3"), true)

		total, err := c.ComputeResultingTotal(overrides)
		require.NoError(t, err)
		assert.Equal(t, 1, total.WillDelete)
		assert.Equal(t, 2, total.WillKeep)
		assert.True(t, total.IsBalanced)
	})

	t.Run("treating a near-exact match as distinct", func(t *testing.T) {
		overrides := NewSelectionOverrides(c.Fingerprint).
			Set(DeleteKey("A3"), true).
			Set(PairKey("A2", "B2"), false)

		total, err := c.ComputeResultingTotal(overrides)
		require.NoError(t, err)
		assert.Equal(t, 2, total.WillCreate)
		assert.Equal(t, 2, total.WillKeep)
		assert.False(t, total.IsBalanced)

		changes, err := c.ChangeSet(overrides)
		require.NoError(t, err)
		assert.Equal(t, []string{"A1", "A2"}, changes.ToKeep)
		assert.Equal(t, []string{"A3"}, changes.ToRemove)
		require.Len(t, changes.ToAdd, 2)
		assert.Equal(t, "B2", changes.ToAdd[0].ID)
		assert.Equal(t, "B3", changes.ToAdd[1].ID)
	})

	t.Run("skipping a new item", func(t *testing.T) {
		overrides := NewSelectionOverrides(c.Fingerprint).Set(NewKey("B3"), false)

		total, err := c.ComputeResultingTotal(overrides)
		require.NoError(t, err)
		assert.Equal(t, 0, total.WillCreate)
	})

	t.Run("diff keys are rejected", func(t *testing.T) {
		overrides := NewSelectionOverrides("").Set(OldKey("A1"), false)

		_, err := c.ComputeResultingTotal(overrides)
		assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeStaleSelection))
	})

	t.Run("a diff keep key cannot confirm a deletion", func(t *testing.T) {
		// old:A3 = true means keep in the diff view
		overrides := NewSelectionOverrides("").Set(OldKey("A3"), true)

		_, err := c.ChangeSet(overrides)
		assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeStaleSelection))
	})
}

func TestClassification_DefaultChangeSetMatchesDiff(t *testing.T) {
	old, new := classificationFixture()
	engine := NewEngine(nil)

	fromClassification, err := engine.Classify(old, new).ChangeSet(nil)
	require.NoError(t, err)

	fromDiff, err := engine.Diff(old, new).ChangeSet(nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, fromDiff.ToKeep, fromClassification.ToKeep)
	assert.ElementsMatch(t, fromDiff.ToRemove, fromClassification.ToRemove)
	assert.ElementsMatch(t, fromDiff.ToAdd, fromClassification.ToAdd)
}

func TestStatus_MarshalText(t *testing.T) {
	text, err := StatusNearExact.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "NEAR_EXACT", string(text))
	assert.Equal(t, "UNKNOWN", Status(42).String())
}
