package parsers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLineItemParser_Standard(t *testing.T) {
	content := `id,date,amount,description,origin,statement_id
A1,2025-08-05,-100.00,NETFLIX,CARDX,CARDX_2508
A2,2025-08-06,"-1,030.50",ALUGUEL,CARDX,CARDX_2508

A3,not-a-date,-15.00,PARKING,CARDX,CARDX_2508
A4,2025-08-07,abc,PARKING,CARDX,CARDX_2508
`
	parser, err := NewLineItemParser(nil)
	require.NoError(t, err)

	snapshot, stats, err := parser.ParseFile(context.Background(), writeFile(t, "stmt.csv", content), "")
	require.NoError(t, err)

	assert.Equal(t, "CARDX_2508", snapshot.StatementID)
	assert.Equal(t, []string{"A1", "A2"}, snapshot.IDs())
	assert.True(t, snapshot.Items[1].Amount.Equal(decimal.RequireFromString("-1030.50")))
	assert.Equal(t, "2025-08-05", snapshot.Items[0].DateKey())

	assert.Equal(t, 4, stats.RecordsParsed)
	assert.Equal(t, 2, stats.RecordsValid)
	assert.Equal(t, 2, stats.ErrorCount)
	assert.Equal(t, "date", stats.Errors[0].Field)
	assert.Equal(t, "amount", stats.Errors[1].Field)
	require.NoError(t, snapshot.Validate())
}

func TestLineItemParser_BrazilianLayout(t *testing.T) {
	content := "identificador;data;valor;descricao;categoria\n" +
		"T1;05/08/2025;-1.234,56;SMART FIT;Saúde\n" +
		"T2;06/08/2025;-39,90;NETFLIX;Lazer\n"

	parser, err := NewLineItemParser(GetLayout("br-card"))
	require.NoError(t, err)

	snapshot, stats, err := parser.Parse(context.Background(), strings.NewReader(content), "inline", "CARDX_2508")
	require.NoError(t, err)
	assert.False(t, stats.HasErrors(), stats.GetSampleErrors(5))

	require.Len(t, snapshot.Items, 2)
	assert.True(t, snapshot.Items[0].Amount.Equal(decimal.RequireFromString("-1234.56")))
	assert.Equal(t, "2025-08-05", snapshot.Items[0].DateKey())
	assert.Equal(t, "Saúde", snapshot.Items[0].ClassifiedDescription)
	assert.Equal(t, "CARDX_2508", snapshot.Items[1].StatementID)
}

func TestLineItemParser_Errors(t *testing.T) {
	parser, err := NewLineItemParser(nil)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("missing columns", func(t *testing.T) {
		_, _, err := parser.Parse(ctx, strings.NewReader("id,when\nA,2025-08-05\n"), "inline", "X")
		assert.True(t, errors.HasCodeInChain(err, errors.CodeMissingColumn))
	})

	t.Run("empty file", func(t *testing.T) {
		_, _, err := parser.Parse(ctx, strings.NewReader(""), "inline", "X")
		assert.True(t, errors.HasCodeInChain(err, errors.CodeInvalidFormat))
	})

	t.Run("no statement id", func(t *testing.T) {
		_, _, err := parser.Parse(ctx, strings.NewReader("id,date,amount\nA,2025-08-05,-1\n"), "inline", "")
		assert.True(t, errors.HasCodeInChain(err, errors.CodeMissingField))
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := parser.ParseFile(ctx, filepath.Join(t.TempDir(), "nope.csv"), "X")
		assert.True(t, errors.HasCodeInChain(err, errors.CodeFileNotFound))
	})

	t.Run("invalid encoding", func(t *testing.T) {
		path := writeFile(t, "latin1.csv", "id,date,amount,description\nA,2025-08-05,-1,CAF\xc9\n")
		_, _, err := parser.ParseFile(ctx, path, "X")
		assert.True(t, errors.HasCodeInChain(err, errors.CodeInvalidFormat))
	})

	t.Run("cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := parser.Parse(cancelled, strings.NewReader("id,date,amount\nA,2025-08-05,-1\n"), "inline", "X")
		assert.True(t, errors.HasCodeInChain(err, errors.CodeUnexpectedError))
	})

	t.Run("invalid layout", func(t *testing.T) {
		_, err := NewLineItemParser(&LineItemParserConfig{Delimiter: ','})
		assert.True(t, errors.HasCodeInChain(err, errors.CodeInvalidConfig))
	})
}

func TestObligationParser(t *testing.T) {
	content := `id,establishment,description,amount,due_date,origin,group_id,installment,reconciled
O1,GYM,Plano anual,-100.00,2025-08-10,CARDX,,3/10,false
O2,ALUGUEL,,-1500.00,2025-08-05,BANK,rent,,sim
O3,GYM,,-100.00,2025-08-10,CARDX,,11/10,
O1,DUP,,-1.00,2025-08-10,CARDX,,,
O4,X,,-1.00,2025-08-10,CARDX,,three,
`
	parser, err := NewObligationParser(nil)
	require.NoError(t, err)

	obligations, stats, err := parser.Parse(context.Background(), strings.NewReader(content), "inline")
	require.NoError(t, err)

	require.Len(t, obligations, 2)
	assert.Equal(t, "O1", obligations[0].ID)
	assert.Equal(t, "3/10", obligations[0].InstallmentLabel())
	assert.False(t, obligations[0].Reconciled)
	assert.Equal(t, "rent", obligations[1].GroupID)
	assert.True(t, obligations[1].Reconciled)

	require.Equal(t, 3, stats.ErrorCount)
	assert.Equal(t, "record", stats.Errors[0].Field)
	assert.Equal(t, "id", stats.Errors[1].Field)
	assert.Equal(t, "installment", stats.Errors[2].Field)
}

func TestSelectionOverrides_RoundTrip(t *testing.T) {
	overrides := matcher.NewSelectionOverrides("3f2a9c1e0b7d4a55").
		Set(matcher.DeleteKey("A3"), true).
		Set(matcher.PairKey("A2", "B2"), false)

	var buf bytes.Buffer
	require.NoError(t, EncodeSelectionOverrides(&buf, overrides))
	assert.Contains(t, buf.String(), "based_on: 3f2a9c1e0b7d4a55")

	loaded, err := LoadSelectionOverrides(writeFile(t, "overrides.yaml", buf.String()))
	require.NoError(t, err)
	assert.Equal(t, overrides, loaded)
}

func TestSelectionOverrides_Invalid(t *testing.T) {
	_, err := LoadSelectionOverrides(writeFile(t, "bad.yaml", "selected: [1, 2]\n"))
	assert.True(t, errors.HasCodeInChain(err, errors.CodeInvalidFormat))

	_, err = LoadSelectionOverrides(writeFile(t, "unknown.yaml", "selcted: {}\n"))
	assert.Error(t, err)

	empty, err := DecodeSelectionOverrides(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Selected)
}

func TestWriteLineItems_ReadBack(t *testing.T) {
	parser, err := NewLineItemParser(nil)
	require.NoError(t, err)

	source := "id,date,amount,description,classified_description,origin,statement_id\n" +
		"A1,2025-08-05,-100.00,\"NETFLIX, INC\",Streaming,CARDX,CARDX_2508\n" +
		"A2,2025-08-06,-50.50,UBER,,CARDX,\n"

	snapshot, _, err := parser.Parse(context.Background(), strings.NewReader(source), "inline", "CARDX_2508")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLineItems(&buf, snapshot))
	assert.Contains(t, buf.String(), "A2,2025-08-06,-50.50,UBER,,CARDX,CARDX_2508")

	again, stats, err := parser.Parse(context.Background(), &buf, "written", "")
	require.NoError(t, err)
	assert.False(t, stats.HasErrors())
	assert.Equal(t, snapshot, again)
}
