// Package handlers implements the dashboard HTTP API.
package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ingest"
)

// Ingester runs imports. *ingest.Coordinator implements it.
type Ingester interface {
	IngestFiles(ctx context.Context, files []domain.ImportFile, meta ingest.BatchMeta) (domain.IngestResult, error)
	IngestRecords(ctx context.Context, meta ingest.BatchMeta, raws []domain.RawRecord) (domain.IngestResult, error)
}

// Invalidator drops cached read models after the data changes.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// allow wraps h so that any other method gets a 405.
func allow(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.MethodNotAllowed(w, method)
			return
		}
		h(w, r)
	}
}

var _ Ingester = (*ingest.Coordinator)(nil)
