package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func record(batchID, id string, sourceID *string, pos int) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:          id,
		BatchID:     batchID,
		SourceID:    sourceID,
		Date:        "01/02/2024",
		Description: "MERCADO",
		Amount:      decimal.RequireFromString("-10.5"),
		Position:    pos,
	}
}

func TestStore_InsertRecordIgnoresConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.InsertBatch(ctx, domain.Batch{ID: "b1"}))

	ok, err := s.InsertRecord(ctx, record("b1", "b1:E1", strPtr("E1"), 0))
	require.NoError(t, err)
	assert.True(t, ok)

	// same id
	ok, err = s.InsertRecord(ctx, record("b1", "b1:E1", strPtr("E1"), 1))
	require.NoError(t, err)
	assert.False(t, ok)

	// same source id under another id
	ok, err = s.InsertRecord(ctx, record("b1", "b2:E1", strPtr("E1"), 2))
	require.NoError(t, err)
	assert.False(t, ok)

	// absent source ids never collide
	ok, err = s.InsertRecord(ctx, record("b1", "r-1", nil, 3))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.InsertRecord(ctx, record("b1", "r-2", nil, 4))
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestStore_InsertRecordRequiresBatch(t *testing.T) {
	s := NewStore()
	_, err := s.InsertRecord(context.Background(), record("missing", "x", nil, 0))
	assert.Error(t, err)
}

func TestStore_InsertBatchMergesCount(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.InsertBatch(ctx, domain.Batch{ID: "b1", Filename: "a.csv", TransactionCount: 2}))
	require.NoError(t, s.InsertBatch(ctx, domain.Batch{ID: "b1", Filename: "b.csv", TransactionCount: 3}))
	require.NoError(t, s.AdjustBatchCount(ctx, "b1", -1))

	batches, err := s.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "a.csv", batches[0].Filename)
	assert.Equal(t, 4, batches[0].TransactionCount)
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, w store.RecordWriter) error {
		if _, err := w.InsertRecord(ctx, record("b1", "b1:E1", strPtr("E1"), 0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	recs, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	found, err := s.ExistingSourceIDs(ctx, []string{"E1"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStore_WithinTxAllowsRecordsBeforeBatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(ctx context.Context, w store.RecordWriter) error {
		if _, err := w.InsertRecord(ctx, record("b1", "b1:E1", strPtr("E1"), 0)); err != nil {
			return err
		}
		return w.InsertBatch(ctx, domain.Batch{ID: "b1", TransactionCount: 1})
	})
	require.NoError(t, err)

	found, err := s.ExistingSourceIDs(ctx, []string{"E1", "E2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"E1": {}}, found)
}

func TestStore_WithinTxRejectsDanglingRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(ctx context.Context, w store.RecordWriter) error {
		_, err := w.InsertRecord(ctx, record("b1", "b1:E1", strPtr("E1"), 0))
		return err
	})
	assert.Error(t, err)

	recs, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_ListOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, s.InsertBatch(ctx, domain.Batch{ID: "old", CreatedAt: older}))
	require.NoError(t, s.InsertBatch(ctx, domain.Batch{ID: "new", CreatedAt: newer}))

	for _, r := range []domain.TransactionRecord{
		{ID: "n1", BatchID: "new", CreatedAt: newer, Position: 1},
		{ID: "o1", BatchID: "old", CreatedAt: older, Position: 1},
		{ID: "n0", BatchID: "new", CreatedAt: newer, Position: 0},
		{ID: "o0", BatchID: "old", CreatedAt: older, Position: 0},
	} {
		_, err := s.InsertRecord(ctx, r)
		require.NoError(t, err)
	}

	batches, err := s.ListBatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", batches[0].ID)
	assert.Equal(t, "old", batches[1].ID)

	recs, err := s.ListRecords(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"o0", "o1", "n0", "n1"}, ids)
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.InsertBatch(ctx, domain.Batch{ID: "b1"}))
	_, err := s.InsertRecord(ctx, record("b1", "b1:E1", strPtr("E1"), 0))
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	batches, err := s.ListBatches(ctx)
	require.NoError(t, err)
	recs, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Empty(t, recs)
}
