// Package bigquery exports stored transactions to a BigQuery table for
// analysis outside the dashboard.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// insertBatchSize bounds rows per streaming insert request.
const insertBatchSize = 500

// Exporter appends transactions to a warehouse table, skipping ids it has
// already exported.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	tableID   string
}

// NewExporter creates an exporter with its own BigQuery client.
func NewExporter(ctx context.Context, projectID, datasetID, tableID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	return NewExporterWithClient(client, projectID, datasetID, tableID), nil
}

// NewExporterWithClient creates an exporter using the provided client.
func NewExporterWithClient(client *bigquery.Client, projectID, datasetID, tableID string) *Exporter {
	return &Exporter{client: client, projectID: projectID, datasetID: datasetID, tableID: tableID}
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

func (e *Exporter) table() *bigquery.Table {
	return e.client.DatasetInProject(e.projectID, e.datasetID).Table(e.tableID)
}

// EnsureTable creates the export table when it does not exist.
func (e *Exporter) EnsureTable(ctx context.Context) error {
	_, err := e.table().Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("EnsureTable: table metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(ExportRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}
	if err := e.table().Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("EnsureTable: create table: %w", err)
	}
	return nil
}

// ExportedIDs returns every transaction id already in the table.
func (e *Exporter) ExportedIDs(ctx context.Context) (map[string]struct{}, error) {
	q := e.client.Query(fmt.Sprintf(
		"SELECT DISTINCT transaction_id FROM `%s.%s.%s`", e.projectID, e.datasetID, e.tableID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExportedIDs: query read: %w", err)
	}

	ids := make(map[string]struct{})
	for {
		var row struct {
			TransactionID string `bigquery:"transaction_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ExportedIDs: iterating results: %w", err)
		}
		ids[row.TransactionID] = struct{}{}
	}
	return ids, nil
}

// Export appends records missing from the table and returns how many rows
// were sent.
func (e *Exporter) Export(ctx context.Context, records []domain.TransactionRecord) (int, error) {
	log := logger.FromContext(ctx)

	if err := e.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("Export: %w", err)
	}
	exported, err := e.ExportedIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("Export: %w", err)
	}

	rows := ToExportRows(records, exported, time.Now())
	inserter := e.table().Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return start, fmt.Errorf("Export: inserting rows: %w", err)
		}
		log.Debug().Int("rows", end-start).Msg("Exported batch of rows")
	}

	log.Info().
		Int("total", len(records)).
		Int("already_exported", len(records)-len(rows)).
		Int("exported", len(rows)).
		Msg("Export completed")
	return len(rows), nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
