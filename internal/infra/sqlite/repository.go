package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"github.com/rs/zerolog"
)

// Repository implements store.Repository on a shared *sql.DB.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open returns a repository for the database at path, using the shared
// client and applying pending migrations.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Repository, error) {
	db, err := Client(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w: %w", store.ErrUnavailable, err)
	}
	if _, err := Migrate(ctx, db, "api", log); err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	return NewRepository(db), nil
}

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// InsertBatch implements store.RecordWriter.
func (r *Repository) InsertBatch(ctx context.Context, batch domain.Batch) error {
	return InsertUploadWith(ctx, r.db, batch)
}

// InsertRecord implements store.RecordWriter.
func (r *Repository) InsertRecord(ctx context.Context, rec domain.TransactionRecord) (bool, error) {
	return InsertTransactionWith(ctx, r.db, rec)
}

// AdjustBatchCount implements store.RecordWriter.
func (r *Repository) AdjustBatchCount(ctx context.Context, batchID string, delta int) error {
	return AdjustUploadCountWith(ctx, r.db, batchID, delta)
}

// ExistingSourceIDs implements store.IngestStore.
func (r *Repository) ExistingSourceIDs(ctx context.Context, sourceIDs []string) (map[string]struct{}, error) {
	return ExistingSourceIDsWith(ctx, r.db, sourceIDs)
}

// WithinTx implements store.IngestStore. Foreign keys are checked at commit,
// so records may be written before their batch.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, w store.RecordWriter) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithinTx: begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &txWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WithinTx: commit: %w", err)
	}
	return nil
}

// ListBatches implements store.Reader.
func (r *Repository) ListBatches(ctx context.Context) ([]domain.Batch, error) {
	return ListUploadsWith(ctx, r.db)
}

// ListRecords implements store.Reader.
func (r *Repository) ListRecords(ctx context.Context) ([]domain.TransactionRecord, error) {
	return ListTransactionsWith(ctx, r.db)
}

// ClearAll implements store.Repository.
func (r *Repository) ClearAll(ctx context.Context) error {
	return DeleteAllWith(ctx, r.db)
}

// txWriter routes writes through one transaction.
type txWriter struct {
	mu sync.Mutex
	tx *sql.Tx
}

func (w *txWriter) InsertBatch(ctx context.Context, batch domain.Batch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return InsertUploadWith(ctx, w.tx, batch)
}

func (w *txWriter) InsertRecord(ctx context.Context, rec domain.TransactionRecord) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return InsertTransactionWith(ctx, w.tx, rec)
}

func (w *txWriter) AdjustBatchCount(ctx context.Context, batchID string, delta int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return AdjustUploadCountWith(ctx, w.tx, batchID, delta)
}

// Ensure Repository implements store.Repository interface.
var _ store.Repository = (*Repository)(nil)
