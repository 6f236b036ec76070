package parsers

import (
	"context"
	"io"

	"fatura-reconciler/internal/models"
	"fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"
)

// ObligationParser reads projected obligations from CSV
type ObligationParser struct {
	*BaseParser
	config *ObligationParserConfig
}

// NewObligationParser creates a new obligations parser
func NewObligationParser(config *ObligationParserConfig) (*ObligationParser, error) {
	if config == nil {
		config = DefaultObligationParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "obligation_parser", nil, err)
	}

	parseConfig := DefaultParseConfig()
	parseConfig.Delimiter = config.Delimiter

	return &ObligationParser{
		BaseParser: NewBaseParser(parseConfig, "obligation_parser"),
		config:     config,
	}, nil
}

// ParseFile parses an obligations CSV file
func (p *ObligationParser) ParseFile(ctx context.Context, filePath string) ([]models.ProjectedObligation, *ParseStats, error) {
	r, err := p.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	return p.Parse(ctx, r, filePath)
}

// Parse parses obligation rows from r. Rows that fail to parse are recorded
// in the returned stats and skipped.
func (p *ObligationParser) Parse(ctx context.Context, r io.Reader, source string) ([]models.ProjectedObligation, *ParseStats, error) {
	reader := p.NewReader(r)
	parseCtx := NewParseContext(ctx, source)
	stats := NewParseStats()

	required := []string{p.config.IDColumn, p.config.AmountColumn, p.config.DueDateColumn}
	if err := p.ReadHeaders(reader, parseCtx, required); err != nil {
		return nil, stats, err
	}

	var obligations []models.ProjectedObligation
	seen := make(map[string]int)

	for {
		record, err := p.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := errors.AsReconcilerError(err); ok {
				return obligations, stats, err
			}
			stats.AddError(&ParseError{Line: parseCtx.LineNumber, Field: "record", Message: "malformed CSV record", Err: err})
			continue
		}

		stats.RecordsParsed++

		o, parseErr := p.parseRecord(record, parseCtx)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if line, dup := seen[o.ID]; dup {
			stats.AddError(&ParseError{Line: parseCtx.LineNumber, Field: "id", Value: o.ID,
				Message: "duplicate obligation id", Err: errors.ValidationError(errors.CodeDuplicateID, "id", line, nil)})
			continue
		}
		seen[o.ID] = parseCtx.LineNumber

		obligations = append(obligations, o)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	p.logger.WithFields(logger.Fields{
		"source":         source,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    stats.ErrorCount,
	}).Info("Obligation parsing completed")

	return obligations, stats, nil
}

func (p *ObligationParser) parseRecord(record []string, parseCtx *ParseContext) (models.ProjectedObligation, *ParseError) {
	field := func(column string) string {
		return p.GetFieldValue(record, parseCtx, column)
	}

	dueDate, err := parseDate(field(p.config.DueDateColumn), p.config.DateFormat)
	if err != nil {
		return models.ProjectedObligation{}, &ParseError{Line: parseCtx.LineNumber, Field: "due_date",
			Value: field(p.config.DueDateColumn), Message: "invalid due date", Err: err}
	}

	amount, err := parseAmount(field(p.config.AmountColumn), p.config.DecimalComma)
	if err != nil {
		return models.ProjectedObligation{}, &ParseError{Line: parseCtx.LineNumber, Field: "amount",
			Value: field(p.config.AmountColumn), Message: "invalid amount", Err: err}
	}

	current, total, err := parseInstallment(field(p.config.InstallmentColumn))
	if err != nil {
		return models.ProjectedObligation{}, &ParseError{Line: parseCtx.LineNumber, Field: "installment",
			Value: field(p.config.InstallmentColumn), Message: "invalid installment", Err: err}
	}

	reconciled, err := parseBool(field(p.config.ReconciledColumn))
	if err != nil {
		return models.ProjectedObligation{}, &ParseError{Line: parseCtx.LineNumber, Field: "reconciled",
			Value: field(p.config.ReconciledColumn), Message: "invalid reconciled flag", Err: err}
	}

	o := models.ProjectedObligation{
		ID:                 field(p.config.IDColumn),
		Establishment:      field(p.config.EstablishmentColumn),
		Description:        field(p.config.DescriptionColumn),
		Amount:             amount,
		DueDate:            dueDate,
		Origin:             field(p.config.OriginColumn),
		GroupID:            field(p.config.GroupColumn),
		CurrentInstallment: current,
		TotalInstallments:  total,
		Reconciled:         reconciled,
		StatementID:        field(p.config.StatementColumn),
	}

	if err := o.Validate(); err != nil {
		return models.ProjectedObligation{}, &ParseError{Line: parseCtx.LineNumber, Field: "record", Value: o.ID,
			Message: "invalid obligation", Err: errors.ValidationError(errors.CodeInvalidObligationData, "obligation", o.ID, err)}
	}

	return o, nil
}
