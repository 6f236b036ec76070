package reconciler

import (
	"context"

	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/store"
	apperrors "fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"

	"github.com/google/uuid"
)

// ImportService merges a re-imported statement into the stored one
type ImportService struct {
	records      store.RecordStore
	engine       *matcher.Engine
	preprocessor *Preprocessor
	newID        func() string
	logger       logger.Logger
}

// ImportPreview is what the caller reviews before applying an import
type ImportPreview struct {
	Old            models.StatementSnapshot `json:"old"`
	New            models.StatementSnapshot `json:"new"`
	Diff           *matcher.DiffResult      `json:"diff"`
	Classification *matcher.Classification  `json:"classification"`
	Total          matcher.ResultingTotal   `json:"total"`
	Preprocessing  *PreprocessingStats      `json:"preprocessing"`
}

// ImportOutcome describes an applied import
type ImportOutcome struct {
	StatementID string                 `json:"statement_id"`
	Changes     *models.ChangeSet      `json:"changes"`
	Total       matcher.ResultingTotal `json:"total"`
}

// NewImportService creates a new import service
func NewImportService(records store.RecordStore, config *Config) (*ImportService, error) {
	config, log, err := prepare(records, config, "import_service")
	if err != nil {
		return nil, err
	}

	newID := config.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &ImportService{
		records:      records,
		engine:       matcher.NewEngine(config.Matching),
		preprocessor: NewPreprocessor(config.Preprocessing),
		newID:        newID,
		logger:       log,
	}, nil
}

// Preview diffs and classifies incoming against the stored snapshot of the
// same statement, with default selections. Nothing is written.
func (s *ImportService) Preview(ctx context.Context, incoming models.StatementSnapshot) (*ImportPreview, error) {
	var preview *ImportPreview

	err := logger.TimedOperation("import_preview", s.logger.WithField("statement_id", incoming.StatementID), func() error {
		normalized, stats, err := s.preprocessor.Preprocess(incoming)
		if err != nil {
			return err
		}

		old, err := s.records.FetchSnapshot(ctx, normalized.StatementID)
		if err != nil {
			return persistenceFailure(err, apperrors.CodeFetchFailed, "import preview")
		}

		preview, err = s.preview(old, normalized)
		if err != nil {
			return err
		}
		preview.Preprocessing = stats

		counts := preview.Classification.Counts()
		s.logger.WithFields(logger.Fields{
			"statement_id": normalized.StatementID,
			"old_total":    old.Total().StringFixed(2),
			"exact":        counts[matcher.StatusExact],
			"near_exact":   counts[matcher.StatusNearExact],
			"new":          counts[matcher.StatusNew],
			"vanished":     counts[matcher.StatusVanished],
			"balanced":     preview.Total.IsBalanced,
		}).Info("Import classified")

		return nil
	})

	return preview, err
}

// Apply recomputes the classification against the stored snapshot, applies
// overrides and writes the resulting ChangeSet in one atomic unit. Overrides
// must carry keys of the same classification that Preview returned.
func (s *ImportService) Apply(ctx context.Context, incoming models.StatementSnapshot, overrides *matcher.SelectionOverrides) (*ImportOutcome, error) {
	var outcome *ImportOutcome

	err := logger.TimedOperation("import_apply", s.logger.WithField("statement_id", incoming.StatementID), func() error {
		normalized, _, err := s.preprocessor.Preprocess(incoming)
		if err != nil {
			return err
		}

		return s.records.Atomically(ctx, func(tx store.Tx) error {
			old, err := tx.FetchSnapshot(ctx, normalized.StatementID)
			if err != nil {
				return persistenceFailure(err, apperrors.CodeFetchFailed, "import apply")
			}

			preview, err := s.preview(old, normalized)
			if err != nil {
				return err
			}

			changes, err := preview.Classification.ChangeSet(overrides)
			if err != nil {
				return err
			}

			total, err := preview.Classification.ComputeResultingTotal(overrides)
			if err != nil {
				return err
			}

			if !total.IsBalanced {
				s.logger.WithFields(logger.Fields{
					"final":    total.FinalValue.StringFixed(2),
					"expected": total.ExpectedValue.StringFixed(2),
				}).Warn("Applying an unbalanced selection")
			}

			if renamed := s.assignFreshIDs(old, changes); renamed > 0 {
				s.logger.WithField("renamed", renamed).Info("Re-imported lines reuse stored ids; assigned new ids")
			}

			if err := tx.ApplyChangeSet(ctx, normalized.StatementID, *changes); err != nil {
				return persistenceFailure(err, apperrors.CodeApplyFailed, "import apply")
			}

			outcome = &ImportOutcome{
				StatementID: normalized.StatementID,
				Changes:     changes,
				Total:       total,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// assignFreshIDs gives every line to add whose id is already used by the
// stored statement, or by an earlier line to add, a new id. Re-imported
// lines are distinct records and never share identity with stored ones.
func (s *ImportService) assignFreshIDs(old models.StatementSnapshot, changes *models.ChangeSet) int {
	taken := make(map[string]bool, len(old.Items)+len(changes.ToAdd))
	for _, item := range old.Items {
		taken[item.ID] = true
	}

	renamed := 0
	for i := range changes.ToAdd {
		id := changes.ToAdd[i].ID
		for taken[id] {
			id = s.newID()
		}
		if id != changes.ToAdd[i].ID {
			changes.ToAdd[i].ID = id
			renamed++
		}
		taken[id] = true
	}

	return renamed
}

func (s *ImportService) preview(old, incoming models.StatementSnapshot) (*ImportPreview, error) {
	diff, err := s.engine.DiffSnapshots(old, incoming)
	if err != nil {
		return nil, err
	}

	classification := s.engine.ClassifyResult(diff)

	total, err := classification.ComputeResultingTotal(nil)
	if err != nil {
		return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "import preview", err)
	}

	return &ImportPreview{
		Old:            old,
		New:            incoming,
		Diff:           diff,
		Classification: classification,
		Total:          total,
	}, nil
}
