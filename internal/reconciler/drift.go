package reconciler

import (
	"context"

	"fatura-reconciler/internal/fatura"
	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/store"
	apperrors "fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"
)

// DriftService compares what was projected for a statement with what posted
type DriftService struct {
	records    store.RecordStore
	comparator *fatura.Comparator
	logger     logger.Logger
}

// NewDriftService creates a new drift service
func NewDriftService(records store.RecordStore, config *Config) (*DriftService, error) {
	config, log, err := prepare(records, config, "drift_service")
	if err != nil {
		return nil, err
	}

	return &DriftService{
		records:    records,
		comparator: fatura.NewComparator(config.Fatura),
		logger:     log,
	}, nil
}

// Check compares the obligations due in period with the posted items of
// statementID. Obligations projected for another statement are ignored.
func (s *DriftService) Check(ctx context.Context, period, statementID string) (*fatura.ComparisonResult, error) {
	obligations, err := s.records.FetchObligations(ctx, period)
	if err != nil {
		return nil, persistenceFailure(err, apperrors.CodeFetchFailed, "drift check")
	}

	snapshot, err := s.records.FetchSnapshot(ctx, statementID)
	if err != nil {
		return nil, persistenceFailure(err, apperrors.CodeFetchFailed, "drift check")
	}

	projected := make([]models.ProjectedObligation, 0, len(obligations))
	for _, o := range obligations {
		if o.StatementID == "" || o.StatementID == statementID {
			projected = append(projected, o)
		}
	}

	result := s.comparator.Compare(projected, snapshot.Items)

	s.logger.WithFields(logger.Fields{
		"period":           period,
		"statement_id":     statementID,
		"matched":          len(result.Matched),
		"changed":          len(result.Changed),
		"removed":          len(result.Removed),
		"added":            len(result.Added),
		"total_difference": result.TotalDifference.StringFixed(2),
	}).Info("Drift computed")

	return result, nil
}
