package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/domain"
)

const statementDateLayout = "02/01/2006"

// ExportRow is one stored transaction in the warehouse table.
type ExportRow struct {
	TransactionID string              `bigquery:"transaction_id"` // REQUIRED
	UploadID      string              `bigquery:"upload_id"`      // REQUIRED
	SourceID      bigquery.NullString `bigquery:"source_id"`      // NULLABLE

	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE, unparsable dates stay null
	RawDate         string            `bigquery:"raw_date"`         // REQUIRED, as imported

	Type        string   `bigquery:"type"`
	Description string   `bigquery:"description"`
	Amount      *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC
	Category    string   `bigquery:"category"`

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// ToExportRows converts records not yet in exported. Order is preserved.
func ToExportRows(records []domain.TransactionRecord, exported map[string]struct{}, now time.Time) []*ExportRow {
	rows := make([]*ExportRow, 0, len(records))
	for _, r := range records {
		if _, done := exported[r.ID]; done {
			continue
		}
		row := &ExportRow{
			TransactionID: r.ID,
			UploadID:      r.BatchID,
			RawDate:       r.Date,
			Type:          r.Type,
			Description:   r.Description,
			Amount:        r.Amount.Rat(),
			Category:      r.Category,
			ExportedTS:    now.UTC(),
		}
		if r.HasSourceID() {
			row.SourceID = bigquery.NullString{StringVal: *r.SourceID, Valid: true}
		}
		if t, err := time.Parse(statementDateLayout, r.Date); err == nil {
			row.TransactionDate = bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}
