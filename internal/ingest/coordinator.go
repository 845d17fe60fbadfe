// Package ingest runs statement imports: parse, classify, identify,
// deduplicate and persist, one batch per call.
package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/categorize"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/identity"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"github.com/google/uuid"
)

// ErrNoStore is returned when the coordinator has no store to write to.
var ErrNoStore = errors.New("ingest: no store configured")

// BatchPolicy decides when the batch row is written relative to its records.
type BatchPolicy int

const (
	// BatchLast writes records then the batch inside one store transaction.
	BatchLast BatchPolicy = iota
	// BatchFirst writes the batch before its records and reconciles the
	// count afterwards.
	BatchFirst
)

// String returns the config spelling of the policy.
func (p BatchPolicy) String() string {
	if p == BatchFirst {
		return "first"
	}
	return "last"
}

// ParsePolicy maps "first" to BatchFirst; anything else is BatchLast.
func ParsePolicy(s string) BatchPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "first") {
		return BatchFirst
	}
	return BatchLast
}

// Options configures a Coordinator. Zero values get sensible defaults.
type Options struct {
	ChunkSize  int
	Policy     BatchPolicy
	Classifier categorize.Classifier
	Resolver   identity.Resolver
	Clock      func() time.Time

	// OnCommit runs after every successful ingest.
	OnCommit func(result domain.IngestResult)
}

// BatchMeta carries the client-supplied batch fields; any may be empty.
type BatchMeta struct {
	UploadID  string
	Filename  string
	Timestamp string
}

// Coordinator orchestrates ingestion runs against a store.
type Coordinator struct {
	store    store.IngestStore
	opts     Options
	pipeline *Pipeline
}

// NewCoordinator creates a coordinator writing to s.
func NewCoordinator(s store.IngestStore, opts Options) *Coordinator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Classifier == nil {
		opts.Classifier = categorize.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Coordinator{store: s, opts: opts}
	if s != nil {
		c.pipeline = NewPipeline(
			&ParseStep{},
			&ClassifyStep{Classifier: opts.Classifier},
			&ResolveStep{Resolver: opts.Resolver},
			&DedupInCallStep{},
			&DedupStoredStep{Store: s},
			&PersistStep{Store: s, Policy: opts.Policy, ChunkSize: opts.ChunkSize},
		)
	}
	return c
}

// Policy reports the batch policy in use.
func (c *Coordinator) Policy() BatchPolicy {
	return c.opts.Policy
}

// IngestFiles imports raw statement files under one batch. Files are
// processed in the order given.
func (c *Coordinator) IngestFiles(ctx context.Context, files []domain.ImportFile, meta BatchMeta) (domain.IngestResult, error) {
	if meta.Filename == "" && len(files) > 0 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			if f.Filename != "" {
				names = append(names, f.Filename)
			}
		}
		meta.Filename = strings.Join(names, ", ")
	}
	return c.run(ctx, &State{Batch: c.newBatch(meta), Files: files})
}

// IngestRecords imports records a client already parsed.
func (c *Coordinator) IngestRecords(ctx context.Context, meta BatchMeta, raws []domain.RawRecord) (domain.IngestResult, error) {
	return c.run(ctx, &State{Batch: c.newBatch(meta), Raw: raws})
}

func (c *Coordinator) newBatch(meta BatchMeta) domain.Batch {
	now := c.opts.Clock().UTC()
	b := domain.Batch{
		ID:        strings.TrimSpace(meta.UploadID),
		Filename:  meta.Filename,
		Timestamp: meta.Timestamp,
		CreatedAt: now,
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Filename == "" {
		b.Filename = domain.DefaultFilename
	}
	if b.Timestamp == "" {
		b.Timestamp = now.Format(time.RFC3339)
	}
	return b
}

func (c *Coordinator) run(ctx context.Context, state *State) (domain.IngestResult, error) {
	log := logger.FromContext(ctx).With().
		Str("batch_id", state.Batch.ID).
		Str("policy", c.opts.Policy.String()).
		Logger()

	if c.store == nil {
		return domain.IngestResult{}, ErrNoStore
	}

	if err := c.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).
			Int("received", len(state.Records)).
			Int("inserted", state.Inserted).
			Msg("Ingestion failed")
		return domain.IngestResult{}, err
	}

	received := len(state.Records)
	result := domain.IngestResult{
		Upload:            state.Batch,
		ReceivedCount:     received,
		InsertedCount:     state.Inserted,
		SkippedDuplicates: max(received-state.Inserted, 0),
	}

	log.Info().
		Int("received", result.ReceivedCount).
		Int("inserted", result.InsertedCount).
		Int("skipped", result.SkippedDuplicates).
		Msg("Ingestion completed")

	if c.opts.OnCommit != nil {
		c.opts.OnCommit(result)
	}
	return result, nil
}
