package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

func TestToExportRows(t *testing.T) {
	src := "E1"
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	records := []domain.TransactionRecord{
		{ID: "b1:E1", BatchID: "b1", SourceID: &src, Date: "05/03/2025", Type: "Pix",
			Description: "Mercado", Amount: decimal.RequireFromString("-12.34"), Category: "Food"},
		{ID: "done", BatchID: "b1", Date: "06/03/2025", Amount: decimal.NewFromInt(1)},
		{ID: "r-2", BatchID: "b1", Date: "not a date", Amount: decimal.NewFromInt(7)},
	}

	rows := ToExportRows(records, map[string]struct{}{"done": {}}, now)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.TransactionID != "b1:E1" || first.UploadID != "b1" {
		t.Errorf("ids = %q, %q", first.TransactionID, first.UploadID)
	}
	if !first.SourceID.Valid || first.SourceID.StringVal != "E1" {
		t.Errorf("SourceID = %+v", first.SourceID)
	}
	if !first.TransactionDate.Valid || first.TransactionDate.Date != (civil.Date{Year: 2025, Month: 3, Day: 5}) {
		t.Errorf("TransactionDate = %+v", first.TransactionDate)
	}
	if first.Amount.Cmp(big.NewRat(-1234, 100)) != 0 {
		t.Errorf("Amount = %s", first.Amount.FloatString(2))
	}
	if !first.ExportedTS.Equal(now) || first.ExportedTS.Location() != time.UTC {
		t.Errorf("ExportedTS = %v", first.ExportedTS)
	}

	second := rows[1]
	if second.SourceID.Valid {
		t.Error("expected null source id")
	}
	if second.TransactionDate.Valid {
		t.Error("expected null date for unparsable input")
	}
	if second.RawDate != "not a date" {
		t.Errorf("RawDate = %q", second.RawDate)
	}
}
