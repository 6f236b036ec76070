package reconciler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/store"
	apperrors "fatura-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementID = "CARDX_2508"

func day(d int) time.Time {
	return time.Date(2025, 8, d, 0, 0, 0, 0, time.UTC)
}

func lineItem(id string, d int, amount, description string) models.LineItem {
	return models.NewLineItem(id, day(d), decimal.RequireFromString(amount), description, "CARDX", statementID)
}

func obligation(id, establishment, amount string, d int) models.ProjectedObligation {
	return models.ProjectedObligation{
		ID:            id,
		Establishment: establishment,
		Amount:        decimal.RequireFromString(amount),
		DueDate:       day(d),
		Origin:        "CARDX",
	}
}

// failingStore fails selected operations inside atomic units
type failingStore struct {
	*store.MemoryStore
	failPosted bool
	failApply  bool
}

type failingTx struct {
	store.Tx
	parent *failingStore
}

func (f *failingStore) Atomically(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.MemoryStore.Atomically(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, parent: f})
	})
}

func (t *failingTx) CreatePostedRecords(ctx context.Context, items []models.LineItem) error {
	if t.parent.failPosted {
		return errors.New("disk full")
	}
	return t.Tx.CreatePostedRecords(ctx, items)
}

func (t *failingTx) ApplyChangeSet(ctx context.Context, id string, changes models.ChangeSet) error {
	if err := t.Tx.ApplyChangeSet(ctx, id, changes); err != nil {
		return err
	}
	if t.parent.failApply {
		return errors.New("connection reset")
	}
	return nil
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	config := DefaultConfig()
	config.Matching.MinConfidenceScore = 2
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Fatura = nil
	assert.Error(t, config.Validate())

	_, err := NewImportService(nil, nil)
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeMissingField))

	_, err = NewDriftService(store.NewMemoryStore(), &Config{Matching: matcher.DefaultMatchingConfig()})
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeInvalidConfig))
}

func TestPreprocessor(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("timezone database unavailable")
	}

	p := NewPreprocessor(&PreprocessingConfig{
		Timezone:        sp,
		DecimalPlaces:   2,
		TrimWhitespace:  true,
		FillStatementID: true,
	})

	input := models.StatementSnapshot{
		StatementID: statementID,
		Items: []models.LineItem{{
			ID:                " A ",
			Date:              time.Date(2025, 8, 6, 1, 30, 0, 0, time.UTC), // 22:30 on the 5th in Sao Paulo
			Amount:            decimal.RequireFromString("-10.005"),
			OriginDescription: " NETFLIX ",
		}},
	}

	out, stats, err := p.Preprocess(input)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)

	item := out.Items[0]
	assert.Equal(t, "A", item.ID)
	assert.Equal(t, "NETFLIX", item.OriginDescription)
	assert.Equal(t, "2025-08-05", item.DateKey())
	assert.True(t, item.Amount.Equal(decimal.RequireFromString("-10.01")), item.Amount.String())
	assert.Equal(t, statementID, item.StatementID)

	assert.Equal(t, 1, stats.DatesNormalized)
	assert.Equal(t, 1, stats.AmountsRounded)
	assert.Equal(t, 1, stats.DescriptionsTrimmed)
	assert.Equal(t, 1, stats.StatementIDsFilled)

	// input untouched
	assert.Equal(t, " A ", input.Items[0].ID)

	_, _, err = p.Preprocess(models.StatementSnapshot{StatementID: statementID, Items: []models.LineItem{{ID: "B"}}})
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeMissingField))
}

func TestPreprocessor_CalendarDatesKeepTheirDay(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("timezone database unavailable")
	}

	p := NewPreprocessor(&PreprocessingConfig{Timezone: sp, DecimalPlaces: 2})

	out, stats, err := p.Preprocess(models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("B1", 5, "-100.00", "NETFLIX")},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-08-05", out.Items[0].DateKey())
	assert.Equal(t, 0, stats.DatesNormalized)
}

func TestImportService_NonUTCZone(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("timezone database unavailable")
	}

	ctx := context.Background()
	records := store.NewMemoryStore()
	records.SeedSnapshot(models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("A1", 5, "-100.00", "NETFLIX")},
	})

	config := DefaultConfig()
	config.Preprocessing.Timezone = sp
	svc, err := NewImportService(records, config)
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("B1", 5, "-100.00", "NETFLIX")},
	})
	require.NoError(t, err)

	counts := preview.Classification.Counts()
	assert.Equal(t, 1, counts[matcher.StatusExact])
	assert.Equal(t, 0, counts[matcher.StatusNew])
	assert.Equal(t, 0, counts[matcher.StatusVanished])
	assert.True(t, preview.Total.IsBalanced)
}

func TestImportService_Apply_ReusedIDs(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemoryStore()
	records.SeedSnapshot(models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("A", 5, "-100.00", "NETFLIX")},
	})

	config := DefaultConfig()
	config.NewID = sequentialIDs()
	svc, err := NewImportService(records, config)
	require.NoError(t, err)

	// A different purchase exported under the same row id
	incoming := models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("A", 9, "-42.00", "FARMACIA")},
	}
	preview, err := svc.Preview(ctx, incoming)
	require.NoError(t, err)
	require.Equal(t, 1, preview.Classification.Counts()[matcher.StatusNew])

	outcome, err := svc.Apply(ctx, incoming, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Changes.ToAdd, 1)
	assert.Equal(t, "posted-1", outcome.Changes.ToAdd[0].ID)

	stored, err := records.FetchSnapshot(ctx, statementID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "posted-1"}, stored.IDs())
	assert.Equal(t, "-42.00", stored.Items[1].Amount.StringFixed(2))

	// incoming is not modified
	assert.Equal(t, "A", incoming.Items[0].ID)
}

func TestImportService_PreviewAndApply(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemoryStore()
	records.SeedSnapshot(models.StatementSnapshot{
		StatementID: statementID,
		Items: []models.LineItem{
			lineItem("A1", 5, "-100.00", "NETFLIX"),
			lineItem("A2", 6, "-30.00", "UBER"),
			lineItem("A3", 7, "-15.00", "PARKING"),
		},
	})

	svc, err := NewImportService(records, nil)
	require.NoError(t, err)

	incoming := models.StatementSnapshot{
		StatementID: statementID,
		Items: []models.LineItem{
			lineItem("B1", 5, "-100.00", "NETFLIX"),
			lineItem("B2", 6, "-30.00", "UBER *TRIP"),
			lineItem("B3", 9, "-42.00", "FARMACIA"),
		},
	}

	preview, err := svc.Preview(ctx, incoming)
	require.NoError(t, err)
	assert.Len(t, preview.Classification.Pairs, 4)
	assert.False(t, preview.Total.IsBalanced)
	assert.Equal(t, 1, preview.Diff.Summary.UnmatchedOld)

	overrides := matcher.NewSelectionOverrides(preview.Classification.Fingerprint).
		Set(matcher.DeleteKey("A3"), true)

	outcome, err := svc.Apply(ctx, incoming, overrides)
	require.NoError(t, err)
	assert.True(t, outcome.Total.IsBalanced)
	assert.Equal(t, []string{"A3"}, outcome.Changes.ToRemove)

	stored, err := records.FetchSnapshot(ctx, statementID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "B3"}, stored.IDs())

	// a second import of the same data is a no-op
	again, err := svc.Preview(ctx, models.StatementSnapshot{StatementID: statementID, Items: stored.Items})
	require.NoError(t, err)
	assert.True(t, again.Total.IsBalanced)
	assert.Equal(t, 3, again.Classification.Counts()[matcher.StatusExact])
}

func TestImportService_FirstImport(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemoryStore()

	svc, err := NewImportService(records, nil)
	require.NoError(t, err)

	incoming := models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("B1", 5, "-100.00", "NETFLIX")},
	}

	outcome, err := svc.Apply(ctx, incoming, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Changes.ToAdd, 1)

	stored, err := records.FetchSnapshot(ctx, statementID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, stored.IDs())
}

func TestImportService_Apply_Failures(t *testing.T) {
	ctx := context.Background()
	seed := models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("A1", 5, "-100.00", "NETFLIX")},
	}
	incoming := models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("B1", 9, "-42.00", "FARMACIA")},
	}

	t.Run("stale overrides", func(t *testing.T) {
		records := store.NewMemoryStore()
		records.SeedSnapshot(seed)
		svc, err := NewImportService(records, nil)
		require.NoError(t, err)

		_, err = svc.Apply(ctx, incoming, matcher.NewSelectionOverrides("other"))
		assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeStaleSelection))
	})

	t.Run("store failure leaves snapshot untouched", func(t *testing.T) {
		records := &failingStore{MemoryStore: store.NewMemoryStore(), failApply: true}
		records.SeedSnapshot(seed)
		svc, err := NewImportService(records, nil)
		require.NoError(t, err)

		_, err = svc.Apply(ctx, incoming, nil)
		require.Error(t, err)
		reconcilerErr, ok := apperrors.AsReconcilerError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CategoryPersistence, reconcilerErr.Category)

		stored, err := records.FetchSnapshot(ctx, statementID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A1"}, stored.IDs())
	})
}

func newSettlementFixture(records interface {
	SeedObligations(...models.ProjectedObligation)
}) {
	records.SeedObligations(
		obligation("O1", "GYM", "-100.00", 10),
		obligation("O2", "STREAMING", "-120.00", 10),
		obligation("O3", "FARMACIA", "-80.00", 12),
	)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("posted-%d", n)
	}
}

func TestSettlementService_Execute(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemoryStore()
	newSettlementFixture(records)

	config := DefaultConfig()
	config.NewID = sequentialIDs()
	svc, err := NewSettlementService(records, config)
	require.NoError(t, err)

	groups, err := svc.Groups(ctx, "2025-08")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	groupID := groups[0].GroupID
	assert.Equal(t, "CARDX_2025-08", groupID)

	payment := models.NewLineItem("P1", day(15), decimal.RequireFromString("-280.00"), "PIX FATURA", "BANK", "BANK_2508")

	_, validation, err := svc.Check(ctx, payment, groupID, "2025-08")
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Len(t, validation.Warnings, 1)

	outcome, err := svc.Execute(ctx, payment, groupID, "2025-08")
	require.NoError(t, err)
	assert.Len(t, outcome.Validation.Warnings, 1)
	require.Len(t, outcome.Records, 3)
	assert.Equal(t, "posted-1", outcome.Records[0].ID)

	posted, err := records.FetchSnapshot(ctx, "BANK_2508")
	require.NoError(t, err)
	assert.Equal(t, []string{"posted-1", "posted-2", "posted-3"}, posted.IDs())

	obligations, err := records.FetchObligations(ctx, "2025-08")
	require.NoError(t, err)
	for _, o := range obligations {
		assert.True(t, o.Reconciled, o.ID)
	}

	// settling twice is blocked
	_, err = svc.Execute(ctx, payment, groupID, "2025-08")
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeAlreadyReconciled))

	posted, err = records.FetchSnapshot(ctx, "BANK_2508")
	require.NoError(t, err)
	assert.Len(t, posted.Items, 3)
}

func TestSettlementService_Execute_Failures(t *testing.T) {
	ctx := context.Background()
	payment := models.NewLineItem("P1", day(15), decimal.RequireFromString("-300.00"), "PIX FATURA", "BANK", "BANK_2508")

	t.Run("unknown group", func(t *testing.T) {
		records := store.NewMemoryStore()
		newSettlementFixture(records)
		svc, err := NewSettlementService(records, nil)
		require.NoError(t, err)

		_, err = svc.Execute(ctx, payment, "nope", "2025-08")
		assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeGroupNotFound))

		_, _, err = svc.Check(ctx, payment, "nope", "2025-08")
		assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeGroupNotFound))
	})

	t.Run("posting failure rolls back", func(t *testing.T) {
		records := &failingStore{MemoryStore: store.NewMemoryStore(), failPosted: true}
		newSettlementFixture(records)
		svc, err := NewSettlementService(records, nil)
		require.NoError(t, err)

		_, err = svc.Execute(ctx, payment, "CARDX_2025-08", "2025-08")
		require.Error(t, err)
		assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeApplyFailed))

		obligations, err := records.FetchObligations(ctx, "2025-08")
		require.NoError(t, err)
		for _, o := range obligations {
			assert.False(t, o.Reconciled, o.ID)
		}
		assert.Empty(t, records.Statements())
	})
}

func TestDriftService_Check(t *testing.T) {
	ctx := context.Background()
	records := store.NewMemoryStore()
	records.SeedObligations(
		obligation("F1", "GYM", "-80.00", 10),
		obligation("F2", "NETFLIX", "-39.90", 5),
	)
	other := obligation("F3", "ALUGUEL", "-1500.00", 5)
	other.StatementID = "BANK_2508"
	records.SeedObligations(other)

	records.SeedSnapshot(models.StatementSnapshot{
		StatementID: statementID,
		Items:       []models.LineItem{lineItem("T1", 5, "-39.90", "NETFLIX")},
	})

	svc, err := NewDriftService(records, nil)
	require.NoError(t, err)

	result, err := svc.Check(ctx, "2025-08", statementID)
	require.NoError(t, err)

	assert.Len(t, result.Matched, 1)
	require.Len(t, result.Removed, 1)
	assert.Equal(t, "F1", result.Removed[0].ID)
	assert.True(t, result.TotalDifference.Equal(decimal.NewFromInt(-80)), result.TotalDifference.String())
}
