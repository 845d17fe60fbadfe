// Package memory provides a process-local store used when the database is
// unreachable. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/store"
)

// Store is an in-memory implementation of store.Repository.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	batches map[string]domain.Batch
	records map[string]domain.TransactionRecord
	sources map[string]string // source id -> record id
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		batches: make(map[string]domain.Batch),
		records: make(map[string]domain.TransactionRecord),
		sources: make(map[string]string),
	}
}

// InsertBatch implements store.RecordWriter.
func (s *Store) InsertBatch(ctx context.Context, batch domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertBatch(batch)
}

// InsertRecord implements store.RecordWriter. The owning batch must exist.
func (s *Store) InsertRecord(ctx context.Context, rec domain.TransactionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[rec.BatchID]; !ok {
		return false, fmt.Errorf("record %s: batch not found: %s", rec.ID, rec.BatchID)
	}
	return s.insertRecord(rec)
}

// AdjustBatchCount implements store.RecordWriter.
func (s *Store) AdjustBatchCount(ctx context.Context, batchID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustBatchCount(batchID, delta)
}

// ExistingSourceIDs implements store.IngestStore.
func (s *Store) ExistingSourceIDs(ctx context.Context, sourceIDs []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]struct{})
	for _, id := range sourceIDs {
		if _, ok := s.sources[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

// WithinTx implements store.IngestStore. The store stays locked while fn
// runs; an error from fn or a dangling batch reference restores the
// previous contents.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, w store.RecordWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batches := maps.Clone(s.batches)
	records := maps.Clone(s.records)
	sources := maps.Clone(s.sources)
	rollback := func() {
		s.batches, s.records, s.sources = batches, records, sources
	}

	tx := &txWriter{s: s}
	if err := fn(ctx, tx); err != nil {
		rollback()
		return err
	}
	for _, id := range tx.written {
		rec := s.records[id]
		if _, ok := s.batches[rec.BatchID]; !ok {
			rollback()
			return fmt.Errorf("record %s: batch not found: %s", rec.ID, rec.BatchID)
		}
	}
	return nil
}

// ListBatches implements store.Reader.
func (s *Store) ListBatches(ctx context.Context) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.batches))
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ListRecords implements store.Reader.
func (s *Store) ListRecords(ctx context.Context) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.records))
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ClearAll implements store.Repository.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.batches)
	clear(s.records)
	clear(s.sources)
	return nil
}

func (s *Store) insertBatch(batch domain.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch ID is required")
	}
	if existing, ok := s.batches[batch.ID]; ok {
		existing.TransactionCount += batch.TransactionCount
		s.batches[batch.ID] = existing
		return nil
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *Store) insertRecord(rec domain.TransactionRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("record ID is required")
	}
	if _, ok := s.records[rec.ID]; ok {
		return false, nil
	}
	if rec.HasSourceID() {
		if _, ok := s.sources[*rec.SourceID]; ok {
			return false, nil
		}
		s.sources[*rec.SourceID] = rec.ID
	}
	if rec.SourceID != nil {
		src := *rec.SourceID
		rec.SourceID = &src
	}
	s.records[rec.ID] = rec
	return true, nil
}

func (s *Store) adjustBatchCount(batchID string, delta int) error {
	b, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("batch not found: %s", batchID)
	}
	b.TransactionCount += delta
	s.batches[batchID] = b
	return nil
}

// txWriter writes through to a store whose lock is already held by WithinTx.
// Record batch references are checked when the transaction ends.
type txWriter struct {
	mu      sync.Mutex
	s       *Store
	written []string
}

func (t *txWriter) InsertBatch(ctx context.Context, batch domain.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.insertBatch(batch)
}

func (t *txWriter) InsertRecord(ctx context.Context, rec domain.TransactionRecord) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ok, err := t.s.insertRecord(rec)
	if ok {
		t.written = append(t.written, rec.ID)
	}
	return ok, err
}

func (t *txWriter) AdjustBatchCount(ctx context.Context, batchID string, delta int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.adjustBatchCount(batchID, delta)
}

// Ensure Store implements store.Repository interface.
var _ store.Repository = (*Store)(nil)
