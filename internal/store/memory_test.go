package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(id, amount string) models.LineItem {
	return models.NewLineItem(id, time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString(amount), "NETFLIX", "CARDX", "CARDX_2508")
}

func seededStore() *MemoryStore {
	s := NewMemoryStore()
	s.SeedSnapshot(models.StatementSnapshot{
		StatementID: "CARDX_2508",
		Items:       []models.LineItem{lineItem("A", "-10.00"), lineItem("B", "-20.00")},
	})
	s.SeedObligations(
		models.ProjectedObligation{ID: "O1", Amount: decimal.NewFromInt(-50), DueDate: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)},
		models.ProjectedObligation{ID: "O2", Amount: decimal.NewFromInt(-60), DueDate: time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)},
	)
	return s
}

func TestMemoryStore_FetchSnapshot(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	snapshot, err := s.FetchSnapshot(ctx, "CARDX_2508")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, snapshot.IDs())

	// returned items are copies
	snapshot.Items[0].ID = "mutated"
	again, err := s.FetchSnapshot(ctx, "CARDX_2508")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Items[0].ID)

	empty, err := s.FetchSnapshot(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", empty.StatementID)
	assert.Empty(t, empty.Items)
}

func TestMemoryStore_ApplyChangeSet(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	err := s.ApplyChangeSet(ctx, "CARDX_2508", models.ChangeSet{
		ToAdd:    []models.LineItem{lineItem("C", "-30.00")},
		ToKeep:   []string{"A"},
		ToRemove: []string{"B"},
	})
	require.NoError(t, err)

	snapshot, err := s.FetchSnapshot(ctx, "CARDX_2508")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, snapshot.IDs())
}

func TestMemoryStore_ApplyChangeSet_AllOrNothing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		changes  models.ChangeSet
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "unknown id to remove",
			changes:  models.ChangeSet{ToRemove: []string{"B", "Z"}},
			wantCode: apperrors.CodeNotFound,
		},
		{
			name: "duplicate id to add",
			changes: models.ChangeSet{
				ToAdd:    []models.LineItem{lineItem("C", "-1.00"), lineItem("A", "-1.00")},
				ToRemove: []string{"B"},
			},
			wantCode: apperrors.CodeApplyFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seededStore()

			err := s.ApplyChangeSet(ctx, "CARDX_2508", tt.changes)
			require.Error(t, err)
			assert.True(t, apperrors.HasCodeInChain(err, tt.wantCode), err.Error())

			snapshot, err := s.FetchSnapshot(ctx, "CARDX_2508")
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B"}, snapshot.IDs())
		})
	}
}

func TestMemoryStore_Atomically_Rollback(t *testing.T) {
	ctx := context.Background()
	s := seededStore()
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(tx Tx) error {
		if err := tx.MarkReconciled(ctx, []string{"O1"}); err != nil {
			return err
		}
		if err := tx.CreatePostedRecords(ctx, []models.LineItem{lineItem("P1", "-50.00")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	obligations, err := s.FetchObligations(ctx, "")
	require.NoError(t, err)
	for _, o := range obligations {
		assert.False(t, o.Reconciled, o.ID)
	}

	snapshot, err := s.FetchSnapshot(ctx, "CARDX_2508")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, snapshot.IDs())
}

func TestMemoryStore_Atomically_Commit(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	err := s.Atomically(ctx, func(tx Tx) error {
		if err := tx.MarkReconciled(ctx, []string{"O1"}); err != nil {
			return err
		}
		return tx.CreatePostedRecords(ctx, []models.LineItem{lineItem("P1", "-50.00")})
	})
	require.NoError(t, err)

	obligations, err := s.FetchObligations(ctx, "2025-08")
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.True(t, obligations[0].Reconciled)

	snapshot, err := s.FetchSnapshot(ctx, "CARDX_2508")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "P1"}, snapshot.IDs())
}

func TestMemoryStore_MarkReconciled(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	require.NoError(t, s.MarkReconciled(ctx, []string{"O1"}))

	err := s.MarkReconciled(ctx, []string{"O2", "O1"})
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeAlreadyReconciled))

	// O2 stays untouched by the failed call
	obligations, err := s.FetchObligations(ctx, "2025-09")
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.False(t, obligations[0].Reconciled)

	err = s.MarkReconciled(ctx, []string{"missing"})
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeNotFound))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := seededStore()

	_, err := s.FetchSnapshot(ctx, "CARDX_2508")
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeFetchFailed))

	err = s.ApplyChangeSet(ctx, "CARDX_2508", models.ChangeSet{ToRemove: []string{"A"}})
	assert.True(t, apperrors.HasCodeInChain(err, apperrors.CodeApplyFailed))
}

func TestMemoryStore_ConcurrentApply(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item := lineItem(string(rune('a'+i)), "-1.00")
			assert.NoError(t, s.CreatePostedRecords(ctx, []models.LineItem{item}))
		}(i)
	}
	wg.Wait()

	snapshot, err := s.FetchSnapshot(ctx, "CARDX_2508")
	require.NoError(t, err)
	assert.Len(t, snapshot.Items, 20)
	assert.Equal(t, []string{"CARDX_2508"}, s.Statements())
}
