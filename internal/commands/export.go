package commands

import (
	"errors"
	"fmt"

	infraBQ "github.com/dvloznov/finance-dashboard/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

func newExportCommand(a *app) *cobra.Command {
	var project, dataset, table string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy stored transactions to a BigQuery table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				project = a.cfg.BigQueryProject
			}
			if dataset == "" {
				dataset = a.cfg.BigQueryDataset
			}
			if table == "" {
				table = a.cfg.BigQueryTable
			}
			if project == "" {
				return errors.New("--project or BQ_PROJECT is required")
			}
			return a.runExport(cmd, project, dataset, table)
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "GCP project ID (defaults to BQ_PROJECT)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "BigQuery dataset (defaults to BQ_DATASET)")
	cmd.Flags().StringVar(&table, "table", "", "BigQuery table (defaults to BQ_TABLE)")

	return cmd
}

func (a *app) runExport(cmd *cobra.Command, project, dataset, table string) error {
	ctx := a.context(cmd)
	out := cmd.OutOrStdout()

	repo, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	records, err := repo.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	exporter, err := infraBQ.NewExporter(ctx, project, dataset, table)
	if err != nil {
		return err
	}
	defer exporter.Close()

	n, err := exporter.Export(ctx, records)
	if err != nil {
		return err
	}

	if n == 0 {
		warning(out, "Nothing to export: %d transactions already in %s.%s", len(records), dataset, table)
		return nil
	}
	success(out, "Exported %d of %d transactions to %s.%s.%s", n, len(records), project, dataset, table)
	return nil
}
