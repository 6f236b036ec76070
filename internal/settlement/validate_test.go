package settlement

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payment(amount string) models.LineItem {
	return models.NewLineItem("P1", time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString(amount), "PIX CARTAO", "BANK", "BANK_2508")
}

func testGroup() models.ObligationGroup {
	return Group([]models.ProjectedObligation{
		obligation("1", "GYM", "-100.00", "2025-08-10", "CARDX", ""),
		obligation("2", "STREAMING", "-120.00", "2025-08-10", "CARDX", ""),
		obligation("3", "FARMACIA", "-80.00", "2025-08-10", "CARDX", ""),
	})[0]
}

func TestValidate_Balance(t *testing.T) {
	group := testGroup()

	t.Run("exact payment", func(t *testing.T) {
		result := Validate(payment("-300.00"), group)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Warnings)
		assert.Empty(t, result.Errors)
		assert.NoError(t, result.Err())
	})

	t.Run("short payment", func(t *testing.T) {
		result := Validate(payment("-280.00"), group)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		require.Len(t, result.Warnings, 1)
		assert.True(t, strings.HasPrefix(result.Warnings[0], "Diferença de valores"), result.Warnings[0])
	})

	t.Run("sign is ignored", func(t *testing.T) {
		result := Validate(payment("300.00"), group)
		assert.Empty(t, result.Warnings)
	})
}

func TestValidate_BalanceBoundary(t *testing.T) {
	group := testGroup()

	tests := []struct {
		amount      string
		wantWarning bool
	}{
		{"-300.00", false},
		{"-300.01", false},
		{"-299.99", false},
		{"-300.02", true},
		{"-299.98", true},
		{"0", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			result := Validate(payment(tt.amount), group)
			assert.Equal(t, tt.wantWarning, len(result.Warnings) > 0)
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Run("already reconciled member", func(t *testing.T) {
		group := testGroup()
		group.Items[1].Reconciled = true

		result := Validate(payment("-300.00"), group)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "2")
		assert.True(t, apperrors.HasCodeInChain(result.Err(), apperrors.CodeAlreadyReconciled))
	})

	t.Run("empty group", func(t *testing.T) {
		result := Validate(payment("-300.00"), models.ObligationGroup{GroupID: "empty"})
		assert.False(t, result.Valid)
		assert.True(t, apperrors.HasCodeInChain(result.Err(), apperrors.CodeEmptyGroup))
	})

	t.Run("malformed payment", func(t *testing.T) {
		p := payment("-300.00")
		p.ID = ""

		result := Validate(p, testGroup())
		assert.False(t, result.Valid)
		assert.True(t, apperrors.HasCodeInChain(result.Err(), apperrors.CodeMissingField))
	})
}

func TestToPostedRecords(t *testing.T) {
	group := testGroup()
	group.Items[0].CurrentInstallment = 3
	group.Items[0].TotalInstallments = 10
	group.Items[0].Description = "Plano anual"

	counter := 0
	newID := func() string {
		counter++
		return fmt.Sprintf("posted-%d", counter)
	}

	p := payment("-300.00")
	records := ToPostedRecords(p, group, newID)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "posted-1", first.ID)
	assert.Equal(t, "GYM (3/10)", first.OriginDescription)
	assert.Equal(t, "Plano anual", first.ClassifiedDescription)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-100.00")))
	assert.Equal(t, p.Date, first.Date)
	assert.Equal(t, p.OriginTag, first.OriginTag)
	assert.Equal(t, p.StatementID, first.StatementID)

	assert.Equal(t, "STREAMING", records[1].OriginDescription)
	assert.Equal(t, "posted-3", records[2].ID)

	for _, r := range records {
		assert.NoError(t, r.Validate())
	}
}

func TestToPostedRecords_DefaultIDs(t *testing.T) {
	records := ToPostedRecords(payment("-300.00"), testGroup(), nil)
	require.Len(t, records, 3)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.Len(t, records[0].ID, 36)
}
