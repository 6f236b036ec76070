package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"
)

// MemoryStore is an in-memory implementation of RecordStore.
// It is safe for concurrent use. Atomic units run against a private copy of
// the data that replaces the live data only when the unit succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	statements  map[string][]models.LineItem
	obligations []models.ProjectedObligation
}

// NewMemoryStore creates an empty in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			statements: make(map[string][]models.LineItem),
		},
	}
}

// SeedSnapshot replaces the stored items of a statement
func (s *MemoryStore) SeedSnapshot(snapshot models.StatementSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.LineItem, len(snapshot.Items))
	copy(items, snapshot.Items)
	for i := range items {
		if items[i].StatementID == "" {
			items[i].StatementID = snapshot.StatementID
		}
	}
	s.state.statements[snapshot.StatementID] = items
}

// SeedObligations appends obligations to the store
func (s *MemoryStore) SeedObligations(obligations ...models.ProjectedObligation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.obligations = append(s.state.obligations, obligations...)
}

// Statements returns the ids of all stored statements in sorted order
func (s *MemoryStore) Statements() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.state.statements))
	for id := range s.state.statements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Atomically implements the RecordStore interface
func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&memoryTx{state: working}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return apperrors.PersistenceError(apperrors.CodeApplyFailed, "commit", err)
	}

	s.state = working
	return nil
}

// FetchSnapshot implements the RecordStore interface
func (s *MemoryStore) FetchSnapshot(ctx context.Context, statementID string) (models.StatementSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return (&memoryTx{state: s.state}).FetchSnapshot(ctx, statementID)
}

// FetchObligations implements the RecordStore interface
func (s *MemoryStore) FetchObligations(ctx context.Context, period string) ([]models.ProjectedObligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return (&memoryTx{state: s.state}).FetchObligations(ctx, period)
}

// ApplyChangeSet implements the RecordStore interface
func (s *MemoryStore) ApplyChangeSet(ctx context.Context, statementID string, changes models.ChangeSet) error {
	return s.Atomically(ctx, func(tx Tx) error {
		return tx.ApplyChangeSet(ctx, statementID, changes)
	})
}

// MarkReconciled implements the RecordStore interface
func (s *MemoryStore) MarkReconciled(ctx context.Context, ids []string) error {
	return s.Atomically(ctx, func(tx Tx) error {
		return tx.MarkReconciled(ctx, ids)
	})
}

// CreatePostedRecords implements the RecordStore interface
func (s *MemoryStore) CreatePostedRecords(ctx context.Context, items []models.LineItem) error {
	return s.Atomically(ctx, func(tx Tx) error {
		return tx.CreatePostedRecords(ctx, items)
	})
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		statements:  make(map[string][]models.LineItem, len(st.statements)),
		obligations: make([]models.ProjectedObligation, len(st.obligations)),
	}
	for id, items := range st.statements {
		itemsCopy := make([]models.LineItem, len(items))
		copy(itemsCopy, items)
		c.statements[id] = itemsCopy
	}
	copy(c.obligations, st.obligations)
	return c
}

// memoryTx operates directly on one memoryState; callers hold the lock
type memoryTx struct {
	state *memoryState
}

func (tx *memoryTx) FetchSnapshot(ctx context.Context, statementID string) (models.StatementSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.StatementSnapshot{}, apperrors.PersistenceError(apperrors.CodeFetchFailed, "fetch snapshot", err)
	}

	items := tx.state.statements[statementID]
	snapshot := models.StatementSnapshot{
		StatementID: statementID,
		Items:       make([]models.LineItem, len(items)),
	}
	copy(snapshot.Items, items)

	return snapshot, nil
}

func (tx *memoryTx) ApplyChangeSet(ctx context.Context, statementID string, changes models.ChangeSet) error {
	const operation = "apply change set"

	if err := ctx.Err(); err != nil {
		return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation, err)
	}

	current := tx.state.statements[statementID]
	existing := make(map[string]bool, len(current))
	for _, item := range current {
		existing[item.ID] = true
	}

	for _, id := range append(append([]string{}, changes.ToKeep...), changes.ToRemove...) {
		if !existing[id] {
			return apperrors.PersistenceError(apperrors.CodeNotFound, operation,
				fmt.Errorf("line item %s is not in statement %s", id, statementID)).
				WithContext("id", id)
		}
	}

	remove := make(map[string]bool, len(changes.ToRemove))
	for _, id := range changes.ToRemove {
		remove[id] = true
	}

	next := make([]models.LineItem, 0, len(current)-len(remove)+len(changes.ToAdd))
	for _, item := range current {
		if !remove[item.ID] {
			next = append(next, item)
		}
	}

	ids := make(map[string]bool, len(next))
	for _, item := range next {
		ids[item.ID] = true
	}

	for _, item := range changes.ToAdd {
		if item.StatementID == "" {
			item.StatementID = statementID
		}
		if item.StatementID != statementID {
			return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation,
				fmt.Errorf("line item %s belongs to statement %s", item.ID, item.StatementID))
		}
		if ids[item.ID] {
			return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation,
				fmt.Errorf("line item %s already exists in statement %s", item.ID, statementID)).
				WithContext("id", item.ID)
		}
		ids[item.ID] = true
		next = append(next, item)
	}

	tx.state.statements[statementID] = next
	return nil
}

func (tx *memoryTx) FetchObligations(ctx context.Context, period string) ([]models.ProjectedObligation, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.PersistenceError(apperrors.CodeFetchFailed, "fetch obligations", err)
	}

	var result []models.ProjectedObligation
	for _, o := range tx.state.obligations {
		if period == "" || o.DueMonth() == period {
			result = append(result, o)
		}
	}

	return result, nil
}

func (tx *memoryTx) MarkReconciled(ctx context.Context, ids []string) error {
	const operation = "mark reconciled"

	if err := ctx.Err(); err != nil {
		return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation, err)
	}

	index := make(map[string]int, len(tx.state.obligations))
	for i, o := range tx.state.obligations {
		index[o.ID] = i
	}

	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			return apperrors.PersistenceError(apperrors.CodeNotFound, operation,
				fmt.Errorf("obligation %s does not exist", id)).
				WithContext("id", id)
		}
		if tx.state.obligations[i].Reconciled {
			return apperrors.ValidationError(apperrors.CodeAlreadyReconciled, "obligation", id, nil)
		}
		tx.state.obligations[i].Reconciled = true
	}

	return nil
}

func (tx *memoryTx) CreatePostedRecords(ctx context.Context, items []models.LineItem) error {
	const operation = "create posted records"

	if err := ctx.Err(); err != nil {
		return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation, err)
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation, err)
		}
		if item.StatementID == "" {
			return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation,
				fmt.Errorf("posted record %s has no statement", item.ID))
		}

		for _, existing := range tx.state.statements[item.StatementID] {
			if existing.ID == item.ID {
				return apperrors.PersistenceError(apperrors.CodeApplyFailed, operation,
					fmt.Errorf("line item %s already exists in statement %s", item.ID, item.StatementID)).
					WithContext("id", item.ID)
			}
		}

		tx.state.statements[item.StatementID] = append(tx.state.statements[item.StatementID], item)
	}

	return nil
}

// Ensure MemoryStore implements the RecordStore interface.
var _ RecordStore = (*MemoryStore)(nil)
