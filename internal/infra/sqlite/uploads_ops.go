package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// InsertUploadWith inserts a batch row. An existing id keeps its filename
// and timestamp and has its count increased.
func InsertUploadWith(ctx context.Context, q querier, batch domain.Batch) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO uploads (id, filename, timestamp, transaction_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transaction_count = uploads.transaction_count + excluded.transaction_count`,
		batch.ID, batch.Filename, batch.Timestamp, batch.TransactionCount, batch.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("InsertUpload: %w", err)
	}
	return nil
}

// AdjustUploadCountWith adds delta to a batch's transaction count.
func AdjustUploadCountWith(ctx context.Context, q querier, batchID string, delta int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE uploads SET transaction_count = transaction_count + ?
		WHERE id = ?`, delta, batchID)
	if err != nil {
		return fmt.Errorf("AdjustUploadCount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("AdjustUploadCount: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("AdjustUploadCount: batch %s: %w", batchID, ErrNotFound)
	}
	return nil
}

// ListUploadsWith returns every batch, newest first.
func ListUploadsWith(ctx context.Context, q querier) ([]domain.Batch, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, filename, timestamp, transaction_count, created_at
		FROM uploads
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListUploads: query: %w", err)
	}
	defer rows.Close()

	batches := []domain.Batch{}
	for rows.Next() {
		var (
			b       domain.Batch
			created int64
		)
		if err := rows.Scan(&b.ID, &b.Filename, &b.Timestamp, &b.TransactionCount, &created); err != nil {
			return nil, fmt.Errorf("ListUploads: scan: %w", err)
		}
		b.CreatedAt = time.Unix(0, created).UTC()
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUploads: iterating: %w", err)
	}
	return batches, nil
}
