package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/jomei/notionapi"
)

// pageSize is the largest page the Notion query endpoint returns.
const pageSize = 100

// Options controls a sync run.
type Options struct {
	DryRun bool
	// Prune archives pages whose transaction is no longer stored.
	Prune bool
}

// Result counts what a sync did, or would do on a dry run.
type Result struct {
	Created  int
	Skipped  int
	Archived int
	Failed   int
}

// SyncRecords creates a Notion page for every record the database does not
// already hold, matching pages on the Transaction ID property. Records are
// immutable, so existing pages are never updated. Failures on single pages
// are logged and counted; only listing the database aborts the run.
func SyncRecords(ctx context.Context, records []domain.TransactionRecord, svc NotionService, databaseID string, opts Options) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	log.Info().
		Int("record_count", len(records)).
		Bool("dry_run", opts.DryRun).
		Bool("prune", opts.Prune).
		Msg("Starting transaction sync to Notion")

	pages, err := queryAllPages(ctx, svc, databaseID)
	if err != nil {
		return res, fmt.Errorf("SyncRecords: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		if id := recordID(page); id != "" {
			existing[id] = struct{}{}
		}
	}

	if opts.Prune {
		stored := make(map[string]struct{}, len(records))
		for _, rec := range records {
			stored[rec.ID] = struct{}{}
		}
		for _, page := range pages {
			id := recordID(page)
			if _, ok := stored[id]; ok {
				continue
			}
			if opts.DryRun {
				log.Info().Str("record_id", id).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive stale Notion page")
				res.Archived++
				continue
			}
			if err := svc.ArchivePage(ctx, string(page.ID)); err != nil {
				log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
				res.Failed++
				continue
			}
			res.Archived++
		}
	}

	for _, rec := range records {
		if _, ok := existing[rec.ID]; ok {
			res.Skipped++
			continue
		}
		if opts.DryRun {
			log.Debug().Str("record_id", rec.ID).Msg("[DRY RUN] Would create Notion page")
			res.Created++
			continue
		}

		page, err := svc.CreatePage(ctx, databaseID, RecordToProperties(rec))
		if err != nil {
			log.Warn().Err(err).Str("record_id", rec.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		existing[rec.ID] = struct{}{}
		log.Debug().Str("record_id", rec.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Transaction sync completed")

	return res, nil
}

// queryAllPages follows the cursor until the database is exhausted.
func queryAllPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var (
		all    []notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
