package parsers

import (
	"context"
	"fmt"
	"io"

	"fatura-reconciler/internal/models"
	"fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"
)

// LineItemParser reads statement snapshots from CSV
type LineItemParser struct {
	*BaseParser
	config *LineItemParserConfig
}

// NewLineItemParser creates a new parser for the given layout
func NewLineItemParser(config *LineItemParserConfig) (*LineItemParser, error) {
	if config == nil {
		config = DefaultLineItemParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "line_item_parser", config.Name, err)
	}

	parseConfig := DefaultParseConfig()
	parseConfig.HasHeader = config.HasHeader
	parseConfig.Delimiter = config.Delimiter

	return &LineItemParser{
		BaseParser: NewBaseParser(parseConfig, "line_item_parser"),
		config:     config,
	}, nil
}

// ParseFile parses a statement CSV file into a snapshot of statementID. An
// empty statementID is taken from the statement column of the rows.
func (p *LineItemParser) ParseFile(ctx context.Context, filePath, statementID string) (models.StatementSnapshot, *ParseStats, error) {
	r, err := p.OpenFile(filePath)
	if err != nil {
		return models.StatementSnapshot{}, nil, err
	}
	return p.Parse(ctx, r, filePath, statementID)
}

// Parse parses statement rows from r. Rows that fail to parse are recorded
// in the returned stats and skipped.
func (p *LineItemParser) Parse(ctx context.Context, r io.Reader, source, statementID string) (models.StatementSnapshot, *ParseStats, error) {
	p.logger.WithFields(logger.Fields{
		"source":       source,
		"statement_id": statementID,
		"layout":       p.config.Name,
	}).Debug("Starting statement parsing")

	reader := p.NewReader(r)
	parseCtx := NewParseContext(ctx, source)
	stats := NewParseStats()

	required := []string{
		p.config.GetColumnName("id"),
		p.config.GetColumnName("date"),
		p.config.GetColumnName("amount"),
	}
	if !p.config.HasHeader {
		required = append(required, p.config.GetColumnName("description"))
	}

	if err := p.ReadHeaders(reader, parseCtx, required); err != nil {
		return models.StatementSnapshot{}, stats, err
	}

	snapshot := models.StatementSnapshot{StatementID: statementID}

	for {
		record, err := p.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := errors.AsReconcilerError(err); ok {
				return snapshot, stats, err
			}
			stats.AddError(&ParseError{Line: parseCtx.LineNumber, Field: "record", Message: "malformed CSV record", Err: err})
			continue
		}

		stats.RecordsParsed++

		item, parseErr := p.parseRecord(record, parseCtx)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if snapshot.StatementID == "" {
			snapshot.StatementID = item.StatementID
		}
		if item.StatementID == "" {
			item.StatementID = snapshot.StatementID
		}

		snapshot.Items = append(snapshot.Items, item)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	if snapshot.StatementID == "" {
		return snapshot, stats, errors.ValidationError(errors.CodeMissingField, "statement_id", source, nil).
			WithSuggestion("pass the statement id or add a statement column to the file")
	}

	p.logger.WithFields(logger.Fields{
		"source":         source,
		"statement_id":   snapshot.StatementID,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    stats.ErrorCount,
	}).Info("Statement parsing completed")

	if stats.HasErrors() {
		p.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return snapshot, stats, nil
}

func (p *LineItemParser) parseRecord(record []string, parseCtx *ParseContext) (models.LineItem, *ParseError) {
	field := func(name string) string {
		return p.GetFieldValue(record, parseCtx, p.config.GetColumnName(name))
	}

	id := field("id")
	if id == "" {
		return models.LineItem{}, &ParseError{Line: parseCtx.LineNumber, Field: "id", Message: "id cannot be empty"}
	}

	date, err := parseDate(field("date"), p.config.DateFormat)
	if err != nil {
		return models.LineItem{}, &ParseError{Line: parseCtx.LineNumber, Field: "date", Value: field("date"), Message: "invalid date", Err: err}
	}

	amount, err := parseAmount(field("amount"), p.config.DecimalComma)
	if err != nil {
		return models.LineItem{}, &ParseError{Line: parseCtx.LineNumber, Field: "amount", Value: field("amount"), Message: "invalid amount", Err: err}
	}

	origin := field("origin")
	if origin == "" {
		origin = p.config.DefaultOriginTag
	}

	item := models.NewLineItem(id, date, amount, field("description"), origin, field("statement_id"))
	item.ClassifiedDescription = field("classified_description")

	if err := item.Validate(); err != nil {
		return models.LineItem{}, &ParseError{Line: parseCtx.LineNumber, Field: "record", Value: id, Message: fmt.Sprintf("invalid line item %s", id), Err: err}
	}

	return item, nil
}
