package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/finance-dashboard/internal/notionsync"
	"github.com/spf13/cobra"
)

func newSyncNotionCommand(a *app) *cobra.Command {
	var (
		token, databaseID string
		opts              notionsync.Options
	)

	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Mirror stored transactions into a Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = a.cfg.NotionToken
			}
			if databaseID == "" {
				databaseID = a.cfg.NotionDatabaseID
			}
			if token == "" || databaseID == "" {
				return errors.New("--notion-token and --notion-db-id (or NOTION_TOKEN and NOTION_DB_ID) are required")
			}
			client := notionsync.NewNotionClient(token)
			return a.syncNotion(a.context(cmd), cmd.OutOrStdout(), client, databaseID, opts)
		},
	}

	cmd.Flags().StringVar(&token, "notion-token", "", "Notion integration token (defaults to NOTION_TOKEN)")
	cmd.Flags().StringVar(&databaseID, "notion-db-id", "", "Notion database ID (defaults to NOTION_DB_ID)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would change without writing to Notion")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "archive pages whose transaction is no longer stored")

	return cmd
}

func (a *app) syncNotion(ctx context.Context, out io.Writer, svc notionsync.NotionService, databaseID string, opts notionsync.Options) error {
	repo, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	records, err := repo.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	res, err := notionsync.SyncRecords(ctx, records, svc, databaseID, opts)
	if err != nil {
		return err
	}

	title := "Notion sync"
	if opts.DryRun {
		title += " (dry run)"
	}
	header(out, title)
	field(out, "Created", res.Created)
	field(out, "Already synced", res.Skipped)
	field(out, "Archived", res.Archived)
	field(out, "Failed", res.Failed)

	if res.Failed > 0 {
		warning(out, "%d page(s) failed, run again to retry", res.Failed)
		return nil
	}
	success(out, "Notion holds %d transactions", res.Created+res.Skipped)
	return nil
}
