// Package store defines the record store the reconciliation services write
// through, and an in-memory implementation of it.
package store

import (
	"context"

	"fatura-reconciler/internal/models"
)

// Tx is the set of record operations available inside a unit of work
type Tx interface {
	// FetchSnapshot returns the stored items of a statement. An unknown
	// statement yields an empty snapshot.
	FetchSnapshot(ctx context.Context, statementID string) (models.StatementSnapshot, error)

	// ApplyChangeSet removes ToRemove and inserts ToAdd into a statement.
	// Either every change is applied or none is.
	ApplyChangeSet(ctx context.Context, statementID string, changes models.ChangeSet) error

	// FetchObligations returns the obligations due in period (YYYY-MM); an
	// empty period returns every obligation.
	FetchObligations(ctx context.Context, period string) ([]models.ProjectedObligation, error)

	// MarkReconciled flags obligations as reconciled
	MarkReconciled(ctx context.Context, ids []string) error

	// CreatePostedRecords stores new line items under their StatementID
	CreatePostedRecords(ctx context.Context, items []models.LineItem) error
}

// RecordStore is the persistence boundary of the reconciliation services.
// Atomically runs fn as one all-or-nothing unit: when fn returns an error,
// nothing it wrote is kept. fn must only use the Tx it is given.
type RecordStore interface {
	Tx
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}
