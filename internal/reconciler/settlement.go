package reconciler

import (
	"context"

	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/settlement"
	"fatura-reconciler/internal/store"
	apperrors "fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"
)

// SettlementService binds a real payment to a group of projected obligations
type SettlementService struct {
	records store.RecordStore
	newID   func() string
	logger  logger.Logger
}

// SettlementOutcome describes an executed settlement
type SettlementOutcome struct {
	Group      models.ObligationGroup      `json:"group"`
	Validation settlement.ValidationResult `json:"validation"`
	Records    []models.LineItem           `json:"records"`
}

// NewSettlementService creates a new settlement service
func NewSettlementService(records store.RecordStore, config *Config) (*SettlementService, error) {
	config, log, err := prepare(records, config, "settlement_service")
	if err != nil {
		return nil, err
	}

	return &SettlementService{
		records: records,
		newID:   config.NewID,
		logger:  log,
	}, nil
}

// Groups returns the settlement groups of the obligations due in period
func (s *SettlementService) Groups(ctx context.Context, period string) ([]models.ObligationGroup, error) {
	obligations, err := s.records.FetchObligations(ctx, period)
	if err != nil {
		return nil, persistenceFailure(err, apperrors.CodeFetchFailed, "list groups")
	}

	groups := settlement.Group(obligations)
	s.logger.WithFields(logger.Fields{
		"period":      period,
		"obligations": len(obligations),
		"groups":      len(groups),
	}).Debug("Grouped obligations")

	return groups, nil
}

// Check validates payment against a group without writing anything
func (s *SettlementService) Check(ctx context.Context, payment models.LineItem, groupID, period string) (models.ObligationGroup, settlement.ValidationResult, error) {
	groups, err := s.Groups(ctx, period)
	if err != nil {
		return models.ObligationGroup{}, settlement.ValidationResult{}, err
	}

	group, ok := settlement.FindGroup(groups, groupID)
	if !ok {
		return models.ObligationGroup{}, settlement.ValidationResult{}, groupNotFound(groupID, period)
	}

	return group, settlement.Validate(payment, group), nil
}

// Execute validates payment against the group and, when no blocking error
// is found, creates one posted record per member and marks every member
// reconciled in one atomic unit. Balance warnings do not block; they are
// returned in the outcome.
func (s *SettlementService) Execute(ctx context.Context, payment models.LineItem, groupID, period string) (*SettlementOutcome, error) {
	var outcome *SettlementOutcome

	log := s.logger.WithFields(logger.Fields{"group_id": groupID, "period": period, "payment_id": payment.ID})

	err := logger.TimedOperation("settlement_execute", log, func() error {
		return s.records.Atomically(ctx, func(tx store.Tx) error {
			obligations, err := tx.FetchObligations(ctx, period)
			if err != nil {
				return persistenceFailure(err, apperrors.CodeFetchFailed, "settlement")
			}

			group, ok := settlement.FindGroup(settlement.Group(obligations), groupID)
			if !ok {
				return groupNotFound(groupID, period)
			}

			validation := settlement.Validate(payment, group)
			if err := validation.Err(); err != nil {
				return err
			}

			for _, warning := range validation.Warnings {
				log.Warn(warning)
			}

			records := settlement.ToPostedRecords(payment, group, s.newID)
			if err := tx.CreatePostedRecords(ctx, records); err != nil {
				return persistenceFailure(err, apperrors.CodeApplyFailed, "settlement")
			}

			if err := tx.MarkReconciled(ctx, group.IDs()); err != nil {
				return persistenceFailure(err, apperrors.CodeApplyFailed, "settlement")
			}

			outcome = &SettlementOutcome{
				Group:      group,
				Validation: validation,
				Records:    records,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

func groupNotFound(groupID, period string) error {
	return apperrors.ReconciliationError(apperrors.CodeGroupNotFound, "settlement", nil).
		WithContext("group_id", groupID).
		WithContext("period", period)
}
