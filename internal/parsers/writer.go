package parsers

import (
	"encoding/csv"
	"io"

	"fatura-reconciler/internal/models"
)

// WriteLineItems writes a snapshot in the standard layout, so the output of
// an applied import can be read back by a LineItemParser
func WriteLineItems(w io.Writer, snapshot models.StatementSnapshot) error {
	layout := StandardLayout

	writer := csv.NewWriter(w)
	writer.Comma = layout.Delimiter

	headers := []string{
		layout.IDColumn,
		layout.DateColumn,
		layout.AmountColumn,
		layout.DescriptionColumn,
		layout.ClassifiedColumn,
		layout.OriginColumn,
		layout.StatementColumn,
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, item := range snapshot.Items {
		statementID := item.StatementID
		if statementID == "" {
			statementID = snapshot.StatementID
		}

		record := []string{
			item.ID,
			item.DateKey(),
			item.Amount.StringFixed(2),
			item.OriginDescription,
			item.ClassifiedDescription,
			item.OriginTag,
			statementID,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
