// Package store defines the persistence contracts shared by the ingestion
// coordinator, the HTTP handlers and the store implementations.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// ErrUnavailable marks a store that could not be reached.
var ErrUnavailable = errors.New("store unavailable")

// RecordWriter persists batches and transaction records.
type RecordWriter interface {
	// InsertBatch inserts the batch summary row. When the batch id already
	// exists the stored count grows by batch.TransactionCount and the other
	// fields keep their first values.
	InsertBatch(ctx context.Context, batch domain.Batch) error

	// InsertRecord inserts one record, ignoring any unique-key conflict.
	// It reports whether a row was actually written.
	InsertRecord(ctx context.Context, rec domain.TransactionRecord) (bool, error)

	// AdjustBatchCount adds delta to the stored transaction count of a batch.
	AdjustBatchCount(ctx context.Context, batchID string, delta int) error
}

// IngestStore is what the ingestion coordinator needs from a store.
type IngestStore interface {
	RecordWriter

	// ExistingSourceIDs returns which of sourceIDs are already stored.
	ExistingSourceIDs(ctx context.Context, sourceIDs []string) (map[string]struct{}, error)

	// WithinTx runs fn against a writer whose effects commit together.
	// An error from fn rolls every write back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, w RecordWriter) error) error
}

// Reader serves the dashboard read paths.
type Reader interface {
	// ListBatches returns batches, newest first.
	ListBatches(ctx context.Context) ([]domain.Batch, error)

	// ListRecords returns records in creation order.
	ListRecords(ctx context.Context) ([]domain.TransactionRecord, error)
}

// Repository is the full store surface used by the API.
type Repository interface {
	IngestStore
	Reader

	// ClearAll deletes every batch; records go with them.
	ClearAll(ctx context.Context) error
}
