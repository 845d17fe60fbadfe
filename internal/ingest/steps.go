package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-dashboard/internal/categorize"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/identity"
	"github.com/dvloznov/finance-dashboard/internal/statement"
	"github.com/dvloznov/finance-dashboard/internal/store"
)

// ErrInvalidFile wraps failures to read a submitted statement file.
var ErrInvalidFile = errors.New("invalid statement file")

// Step is one stage of an ingestion run.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// candidate is a provisional record plus a category supplied by the client.
type candidate struct {
	record   domain.ProvisionalRecord
	category string
}

// State is shared by the steps of one ingestion run.
type State struct {
	Batch domain.Batch
	Files []domain.ImportFile
	Raw   []domain.RawRecord

	candidates []candidate

	// Records holds every identified record, pre dedup.
	Records []domain.TransactionRecord
	// Survivors holds records left after both dedup passes.
	Survivors []domain.TransactionRecord
	Inserted  int
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("ingest step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// ParseStep turns files and raw payload records into candidates, in file
// order then row order.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	for _, f := range state.Files {
		records, err := statement.ParseFile(f)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidFile, f.Filename, err)
		}
		for _, r := range records {
			state.candidates = append(state.candidates, candidate{record: r})
		}
	}
	for _, raw := range state.Raw {
		state.candidates = append(state.candidates, candidate{
			record:   raw.Provisional(),
			category: raw.Category,
		})
	}
	return nil
}

// ClassifyStep fills in categories the client did not supply.
type ClassifyStep struct {
	Classifier categorize.Classifier
}

func (s *ClassifyStep) Execute(ctx context.Context, state *State) error {
	for i := range state.candidates {
		c := &state.candidates[i]
		if c.category == "" {
			c.category = s.Classifier.Classify(c.record.Description, c.record.Type)
		}
	}
	return nil
}

// ResolveStep assigns ids and builds the records of the batch.
type ResolveStep struct {
	Resolver identity.Resolver
}

func (s *ResolveStep) Execute(ctx context.Context, state *State) error {
	state.Records = make([]domain.TransactionRecord, 0, len(state.candidates))
	for i, c := range state.candidates {
		id := s.Resolver.Resolve(state.Batch.ID, c.record.RawSourceID)
		state.Records = append(state.Records, domain.TransactionRecord{
			ID:          id.ID,
			BatchID:     state.Batch.ID,
			SourceID:    id.SourceID,
			Date:        c.record.Date,
			Type:        c.record.Type,
			Description: c.record.Description,
			Amount:      c.record.Amount,
			Category:    c.category,
			CreatedAt:   state.Batch.CreatedAt,
			Position:    i,
		})
	}
	state.Survivors = state.Records
	return nil
}

// DedupInCallStep drops records repeating an earlier source id of the same
// call. Records without a source id always survive.
type DedupInCallStep struct{}

func (s *DedupInCallStep) Execute(ctx context.Context, state *State) error {
	seen := make(map[string]struct{}, len(state.Survivors))
	kept := make([]domain.TransactionRecord, 0, len(state.Survivors))
	for _, r := range state.Survivors {
		if r.HasSourceID() {
			if _, dup := seen[*r.SourceID]; dup {
				continue
			}
			seen[*r.SourceID] = struct{}{}
		}
		kept = append(kept, r)
	}
	state.Survivors = kept
	return nil
}

// DedupStoredStep drops records whose source id is already stored. This is
// a cost optimisation; the store's conflict handling is the real guard.
type DedupStoredStep struct {
	Store store.IngestStore
}

func (s *DedupStoredStep) Execute(ctx context.Context, state *State) error {
	var ids []string
	for _, r := range state.Survivors {
		if r.HasSourceID() {
			ids = append(ids, *r.SourceID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	existing, err := s.Store.ExistingSourceIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("DedupStoredStep: looking up source ids: %w", err)
	}

	kept := make([]domain.TransactionRecord, 0, len(state.Survivors))
	for _, r := range state.Survivors {
		if r.HasSourceID() {
			if _, found := existing[*r.SourceID]; found {
				continue
			}
		}
		kept = append(kept, r)
	}
	state.Survivors = kept
	return nil
}

// PersistStep writes the batch and its surviving records under a policy.
type PersistStep struct {
	Store     store.IngestStore
	Policy    BatchPolicy
	ChunkSize int
}

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	switch s.Policy {
	case BatchFirst:
		return s.batchFirst(ctx, state)
	default:
		return s.batchLast(ctx, state)
	}
}

// batchFirst writes the batch row up front with the survivor count, then
// the records. A failed chunk leaves the count overstating stored rows.
func (s *PersistStep) batchFirst(ctx context.Context, state *State) error {
	state.Batch.TransactionCount = len(state.Survivors)
	if err := s.Store.InsertBatch(ctx, state.Batch); err != nil {
		return fmt.Errorf("PersistStep: inserting batch: %w", err)
	}

	inserted, err := writeChunks(ctx, s.Store, state.Survivors, s.ChunkSize)
	state.Inserted = inserted
	if err != nil {
		return fmt.Errorf("PersistStep: writing records: %w", err)
	}

	// A concurrent import may have won some source ids after the lookup.
	if delta := inserted - state.Batch.TransactionCount; delta != 0 {
		if err := s.Store.AdjustBatchCount(ctx, state.Batch.ID, delta); err != nil {
			return fmt.Errorf("PersistStep: reconciling batch count: %w", err)
		}
		state.Batch.TransactionCount = inserted
	}
	return nil
}

// batchLast writes records and then the batch in one store transaction, so
// a failure leaves nothing behind.
func (s *PersistStep) batchLast(ctx context.Context, state *State) error {
	var inserted int
	err := s.Store.WithinTx(ctx, func(ctx context.Context, w store.RecordWriter) error {
		n, err := writeChunks(ctx, w, state.Survivors, s.ChunkSize)
		if err != nil {
			return fmt.Errorf("writing records: %w", err)
		}
		inserted = n

		batch := state.Batch
		batch.TransactionCount = n
		if err := w.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("PersistStep: %w", err)
	}

	state.Inserted = inserted
	state.Batch.TransactionCount = inserted
	return nil
}
