package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what the dashboard sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultFilename is used when an import names no file.
const DefaultFilename = "arquivo.csv"

// ProvisionalRecord is one parsed statement row before classification and
// identity resolution.
type ProvisionalRecord struct {
	RawSourceID string
	Date        string // DD/MM/YYYY, kept as text
	Type        string
	Description string
	Amount      decimal.Decimal
}

// TransactionRecord is a persisted statement line.
// Records are immutable once stored.
type TransactionRecord struct {
	ID          string          `json:"id"`
	BatchID     string          `json:"uploadId"`
	SourceID    *string         `json:"sourceId,omitempty"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`

	// CreatedAt and Position give the store a stable creation order.
	CreatedAt time.Time `json:"-"`
	Position  int       `json:"-"`
}

// HasSourceID reports whether the record carries a source identifier.
func (r TransactionRecord) HasSourceID() bool {
	return r.SourceID != nil && *r.SourceID != ""
}

// Month returns the record date with its leading DD/ removed, which is
// MM/YYYY for well-formed dates. Dates of three characters or fewer have no
// month.
func (r TransactionRecord) Month() string {
	if len(r.Date) <= 3 {
		return ""
	}
	return r.Date[3:]
}

// Batch is the record of one import operation.
type Batch struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	Timestamp        string    `json:"timestamp"`
	TransactionCount int       `json:"transactionCount"`
	CreatedAt        time.Time `json:"-"`
}

// RawRecord is a transaction as submitted by a client that already parsed
// its statement. Either ID or SourceID may carry the bank identifier.
type RawRecord struct {
	ID          string          `json:"id,omitempty"`
	SourceID    string          `json:"sourceId,omitempty"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
}

// Provisional converts the raw record into parser output form.
func (r RawRecord) Provisional() ProvisionalRecord {
	src := r.SourceID
	if strings.TrimSpace(src) == "" {
		src = r.ID
	}
	return ProvisionalRecord{
		RawSourceID: src,
		Date:        r.Date,
		Type:        r.Type,
		Description: r.Description,
		Amount:      r.Amount,
	}
}

// ImportFile is a raw statement file submitted for ingestion.
type ImportFile struct {
	Filename string
	Content  []byte
}

// IngestResult is the outcome of one ingestion call.
type IngestResult struct {
	Upload            Batch `json:"upload"`
	ReceivedCount     int   `json:"receivedCount"`
	InsertedCount     int   `json:"insertedCount"`
	SkippedDuplicates int   `json:"skippedDuplicates"`
}
