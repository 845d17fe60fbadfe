package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ingest"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finance.db")
	repo, err := Open(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseAll() })
	return repo
}

func strPtr(s string) *string { return &s }

func TestClient_IsSharedPerPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	t.Cleanup(func() { _ = CloseAll() })

	a, err := Client(context.Background(), path)
	require.NoError(t, err)
	b, err := Client(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := Client(context.Background(), filepath.Join(t.TempDir(), "other.db"))
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := Migrate(ctx, repo.DB(), "test", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	applied, err := AppliedMigrations(ctx, repo.DB())
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	assert.Equal(t, 1, applied[0].Version)
	assert.Equal(t, "init", applied[0].Name)
	assert.Equal(t, "api", applied[0].AppliedBy)
	assert.Len(t, applied[0].Checksum, 64)
}

func TestReadMigrations_FilenamePattern(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_second.sql":       {Data: []byte("SELECT 2;")},
		"m/0001_first.sql":        {Data: []byte("SELECT 1;")},
		"m/001_invalid.sql":       {Data: []byte("x")},
		"m/0003_missing_ext":      {Data: []byte("x")},
		"m/0004.sql":              {Data: []byte("x")},
		"m/invalid_0005_test.sql": {Data: []byte("x")},
	}

	migrations, err := readMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "second", migrations[1].Name)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestRepository_InsertIgnoresConflicts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.InsertBatch(ctx, domain.Batch{ID: "b1", Filename: "a.csv", Timestamp: "t", CreatedAt: now}))

	rec := domain.TransactionRecord{
		ID: "b1:E1", BatchID: "b1", SourceID: strPtr("E1"), Date: "01/03/2025",
		Type: "Pix", Description: "Mercado", Amount: decimal.RequireFromString("-10.50"),
		Category: "Food", CreatedAt: now,
	}
	ok, err := repo.InsertRecord(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.InsertRecord(ctx, rec)
	require.NoError(t, err)
	assert.False(t, ok, "same id")

	other := rec
	other.ID = "b2:E1"
	ok, err = repo.InsertRecord(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok, "same source id")

	for _, id := range []string{"u1", "u2"} {
		blank := rec
		blank.ID, blank.SourceID = id, nil
		ok, err = repo.InsertRecord(ctx, blank)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	records, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "E1", *records[0].SourceID)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("-10.5")))
	assert.Nil(t, records[1].SourceID)
}

func TestRepository_RecordNeedsBatch(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.InsertRecord(context.Background(), domain.TransactionRecord{ID: "x", BatchID: "missing"})
	assert.Error(t, err)
}

func TestRepository_AdjustBatchCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, domain.Batch{ID: "b1", TransactionCount: 5}))
	require.NoError(t, repo.AdjustBatchCount(ctx, "b1", -2))
	assert.ErrorIs(t, repo.AdjustBatchCount(ctx, "nope", 1), ErrNotFound)

	batches, err := repo.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 3, batches[0].TransactionCount)
}

func TestRepository_WithinTxDefersForeignKeys(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(ctx context.Context, w store.RecordWriter) error {
		if _, err := w.InsertRecord(ctx, domain.TransactionRecord{ID: "b1:E1", BatchID: "b1", SourceID: strPtr("E1")}); err != nil {
			return err
		}
		return w.InsertBatch(ctx, domain.Batch{ID: "b1", TransactionCount: 1})
	})
	require.NoError(t, err)

	found, err := repo.ExistingSourceIDs(ctx, []string{"E1", "E9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"E1": {}}, found)
}

func TestRepository_WithinTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(ctx context.Context, w store.RecordWriter) error {
		if err := w.InsertBatch(ctx, domain.Batch{ID: "b1"}); err != nil {
			return err
		}
		if _, err := w.InsertRecord(ctx, domain.TransactionRecord{ID: "b1:E1", BatchID: "b1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	batches, err := repo.ListBatches(ctx)
	require.NoError(t, err)
	records, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Empty(t, records)
}

func TestRepository_ExistingSourceIDsLargeLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertBatch(ctx, domain.Batch{ID: "b1"}))
	_, err := repo.InsertRecord(ctx, domain.TransactionRecord{ID: "b1:LAST", BatchID: "b1", SourceID: strPtr("LAST")})
	require.NoError(t, err)

	ids := make([]string, 0, 1201)
	for i := range 1200 {
		ids = append(ids, fmt.Sprintf("missing-%d", i))
	}
	ids = append(ids, "LAST")

	found, err := repo.ExistingSourceIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"LAST": {}}, found)
}

func TestRepository_IngestAndClear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, policy := range []ingest.BatchPolicy{ingest.BatchLast, ingest.BatchFirst} {
		c := ingest.NewCoordinator(repo, ingest.Options{Policy: policy, ChunkSize: 2})
		file := domain.ImportFile{
			Filename: "extrato.csv",
			Content: []byte("Data;Tipo;Descricao;Valor;Codigo da transacao\n" +
				"01/03/2025;Pix;Pix recebido Joao;1.234,56;E1\n" +
				"02/03/2025;Cartão de débito;Padaria;-8,00;E2\n" +
				"03/03/2025;Pix;Sem codigo;-1,00;\n"),
		}

		res, err := c.IngestFiles(ctx, []domain.ImportFile{file}, ingest.BatchMeta{UploadID: "b-" + policy.String()})
		require.NoError(t, err)
		if policy == ingest.BatchLast {
			assert.Equal(t, 3, res.InsertedCount)
		} else {
			// E1 and E2 were stored by the first run
			assert.Equal(t, 1, res.InsertedCount)
			assert.Equal(t, 2, res.SkippedDuplicates)
		}
	}

	batches, err := repo.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	records, err := repo.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 4)
	for _, b := range batches {
		n := 0
		for _, r := range records {
			if r.BatchID == b.ID {
				n++
			}
		}
		assert.Equal(t, n, b.TransactionCount, "batch %s", b.ID)
	}

	require.NoError(t, repo.ClearAll(ctx))
	batches, err = repo.ListBatches(ctx)
	require.NoError(t, err)
	records, err = repo.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.Empty(t, records)
}
