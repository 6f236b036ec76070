package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProjectedObligation is a future commitment (installment, recurring charge)
// that has not yet posted as a real transaction.
type ProjectedObligation struct {
	ID                 string          `json:"id"`
	Establishment      string          `json:"establishment"`
	Description        string          `json:"description,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            time.Time       `json:"dueDate"`
	Origin             string          `json:"origin"`
	GroupID            string          `json:"groupId,omitempty"`
	CurrentInstallment int             `json:"currentInstallment,omitempty"`
	TotalInstallments  int             `json:"totalInstallments,omitempty"`
	Reconciled         bool            `json:"reconciled"`
	StatementID        string          `json:"statementId,omitempty"`
}

// Validate performs basic validation on the ProjectedObligation
func (po ProjectedObligation) Validate() error {
	if strings.TrimSpace(po.ID) == "" {
		return fmt.Errorf("obligation ID cannot be empty")
	}

	if po.DueDate.IsZero() {
		return fmt.Errorf("obligation %s: due date cannot be zero", po.ID)
	}

	if po.TotalInstallments < 0 || po.CurrentInstallment < 0 {
		return fmt.Errorf("obligation %s: installment numbers cannot be negative", po.ID)
	}

	if po.TotalInstallments > 0 && po.CurrentInstallment > po.TotalInstallments {
		return fmt.Errorf("obligation %s: installment %d exceeds total %d",
			po.ID, po.CurrentInstallment, po.TotalInstallments)
	}

	return nil
}

// Label returns the establishment name, falling back to the description
func (po ProjectedObligation) Label() string {
	if strings.TrimSpace(po.Establishment) != "" {
		return po.Establishment
	}
	return po.Description
}

// InstallmentLabel renders "n/m" for installment obligations, empty otherwise
func (po ProjectedObligation) InstallmentLabel() string {
	if po.TotalInstallments <= 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", po.CurrentInstallment, po.TotalInstallments)
}

// DueMonth returns the YYYY-MM period of the due date
func (po ProjectedObligation) DueMonth() string {
	return MonthKey(po.DueDate)
}

// String returns a string representation of the ProjectedObligation
func (po ProjectedObligation) String() string {
	return fmt.Sprintf("Obligation{ID: %s, Establishment: %s, Amount: %s, Due: %s}",
		po.ID, po.Label(), po.Amount.StringFixed(2), po.DueDate.Format(DateLayout))
}

// MarshalJSON implements custom JSON marshaling for ProjectedObligation
func (po ProjectedObligation) MarshalJSON() ([]byte, error) {
	type Alias ProjectedObligation
	return json.Marshal(&struct {
		Amount  string `json:"amount"`
		DueDate string `json:"dueDate"`
		Alias
	}{
		Amount:  po.Amount.StringFixed(2),
		DueDate: po.DueDate.Format(DateLayout),
		Alias:   (Alias)(po),
	})
}

// ObligationGroup is a candidate settlement group of projected obligations.
// Only the Reconciled flag of its items ever changes, once, at settlement.
type ObligationGroup struct {
	GroupID        string                `json:"groupId"`
	Items          []ProjectedObligation `json:"items"`
	TotalValue     decimal.Decimal       `json:"totalValue"`
	Period         string                `json:"period"`
	Establishments []string              `json:"establishments"`
}

// IDs returns the ids of the group members in order
func (g ObligationGroup) IDs() []string {
	ids := make([]string, 0, len(g.Items))
	for _, item := range g.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// AbsTotal returns the sum of the absolute member amounts
func (g ObligationGroup) AbsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.Amount.Abs())
	}
	return total
}

// HasReconciled reports whether any member is already reconciled
func (g ObligationGroup) HasReconciled() bool {
	for _, item := range g.Items {
		if item.Reconciled {
			return true
		}
	}
	return false
}
