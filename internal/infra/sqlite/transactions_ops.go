package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// maxLookupParams keeps IN lists under SQLite's bound parameter limit.
const maxLookupParams = 500

// InsertTransactionWith inserts one record and ignores uniqueness conflicts
// on id or source_id. It reports whether the row was written.
func InsertTransactionWith(ctx context.Context, q querier, rec domain.TransactionRecord) (bool, error) {
	var sourceID sql.NullString
	if rec.HasSourceID() {
		sourceID = sql.NullString{String: *rec.SourceID, Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions
			(id, upload_id, source_id, date, type, description, amount, category, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		rec.ID, rec.BatchID, sourceID, rec.Date, rec.Type, rec.Description,
		rec.Amount, rec.Category, rec.CreatedAt.UnixNano(), rec.Position,
	)
	if err != nil {
		return false, fmt.Errorf("InsertTransaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("InsertTransaction: rows affected: %w", err)
	}
	return n > 0, nil
}

// ExistingSourceIDsWith returns which of sourceIDs are already stored.
func ExistingSourceIDsWith(ctx context.Context, q querier, sourceIDs []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for start := 0; start < len(sourceIDs); start += maxLookupParams {
		chunk := sourceIDs[start:min(start+maxLookupParams, len(sourceIDs))]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := q.QueryContext(ctx,
			`SELECT source_id FROM transactions WHERE source_id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("ExistingSourceIDs: query: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("ExistingSourceIDs: scan: %w", err)
			}
			found[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("ExistingSourceIDs: iterating: %w", err)
		}
	}
	return found, nil
}

// ListTransactionsWith returns every record in creation order.
func ListTransactionsWith(ctx context.Context, q querier) ([]domain.TransactionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, upload_id, source_id, date, type, description, amount, category, created_at, position
		FROM transactions
		ORDER BY created_at ASC, position ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		var (
			r        domain.TransactionRecord
			sourceID sql.NullString
			created  int64
		)
		if err := rows.Scan(&r.ID, &r.BatchID, &sourceID, &r.Date, &r.Type, &r.Description,
			&r.Amount, &r.Category, &created, &r.Position); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		if sourceID.Valid {
			r.SourceID = &sourceID.String
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: iterating: %w", err)
	}
	return records, nil
}
