package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize bounds the writes in flight during one round.
const DefaultChunkSize = 200

// writeChunks inserts records chunkSize at a time. Writes inside a chunk run
// concurrently; chunks run one after another and a failed or cancelled chunk
// stops the rest. Rows written by earlier chunks stay written.
func writeChunks(ctx context.Context, w store.RecordWriter, records []domain.TransactionRecord, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var inserted atomic.Int64
	for start := 0; start < len(records); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return int(inserted.Load()), err
		}

		end := min(start+chunkSize, len(records))
		g, gctx := errgroup.WithContext(ctx)
		for _, rec := range records[start:end] {
			g.Go(func() error {
				ok, err := w.InsertRecord(gctx, rec)
				if err != nil {
					return fmt.Errorf("record %s: %w", rec.ID, err)
				}
				if ok {
					inserted.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(inserted.Load()), err
		}
	}

	return int(inserted.Load()), nil
}
