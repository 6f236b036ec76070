package settlement

import (
	"fmt"
	"strings"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest payment/group difference that does not
// raise a warning.
var BalanceTolerance = decimal.New(1, -2)

// ValidationResult reports whether a payment may settle a group. Errors block
// the settlement; warnings only need the caller's confirmation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`

	codes []apperrors.ErrorCode
}

func (vr *ValidationResult) addError(code apperrors.ErrorCode, format string, args ...interface{}) {
	vr.Valid = false
	vr.codes = append(vr.codes, code)
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// Err returns the blocking errors as a single validation error, or nil
func (vr ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return apperrors.ValidationError(vr.codes[0], "settlement", strings.Join(vr.Errors, "; "), nil)
}

// Validate checks that payment can settle group. An empty group, a member
// that is already reconciled or a malformed payment is an error; a payment
// whose absolute amount differs from the group's absolute total by more than
// BalanceTolerance is a warning.
func Validate(payment models.LineItem, group models.ObligationGroup) ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}

	if err := payment.Validate(); err != nil {
		result.addError(apperrors.CodeMissingField, "Pagamento inválido: %v", err)
	}

	if len(group.Items) == 0 {
		result.addError(apperrors.CodeEmptyGroup, "Grupo %s não possui lançamentos", group.GroupID)
	}

	for _, item := range group.Items {
		if item.Reconciled {
			result.addError(apperrors.CodeAlreadyReconciled, "Lançamento %s (%s) já foi conciliado", item.ID, item.Label())
		}
	}

	groupTotal := group.AbsTotal()
	paymentTotal := payment.AbsAmount()
	diff := groupTotal.Sub(paymentTotal).Abs()
	if diff.GreaterThan(BalanceTolerance) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Diferença de valores: grupo %s, pagamento %s (diferença %s)",
			groupTotal.StringFixed(2), paymentTotal.StringFixed(2), diff.StringFixed(2)))
	}

	return result
}

// ToPostedRecords converts every member of group into a posted line item
// dated and tagged like payment. newID generates the record ids; nil uses
// random UUIDs.
func ToPostedRecords(payment models.LineItem, group models.ObligationGroup, newID func() string) []models.LineItem {
	if newID == nil {
		newID = uuid.NewString
	}

	records := make([]models.LineItem, 0, len(group.Items))
	for _, o := range group.Items {
		description := o.Label()
		if installment := o.InstallmentLabel(); installment != "" {
			description = fmt.Sprintf("%s (%s)", description, installment)
		}

		records = append(records, models.LineItem{
			ID:                    newID(),
			Date:                  payment.Date,
			Amount:                o.Amount,
			OriginDescription:     description,
			ClassifiedDescription: o.Description,
			OriginTag:             payment.OriginTag,
			StatementID:           payment.StatementID,
		})
	}

	return records
}
