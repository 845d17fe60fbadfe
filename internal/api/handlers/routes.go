package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/archive"
	"github.com/dvloznov/finance-dashboard/internal/insights"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/reports"
	"github.com/dvloznov/finance-dashboard/internal/store"
)

// Deps are the collaborators of the API. Archiver, Advisor, Publisher and
// JobStore are optional.
type Deps struct {
	Repo      store.Repository
	Ingester  Ingester
	Reports   *reports.Service
	Advisor   insights.Advisor
	Archiver  archive.Archiver
	Publisher jobs.Publisher
	JobStore  jobs.JobStore

	MaxUploadBytes int64

	// StoreName is reported by /health, e.g. "sqlite" or "memory".
	StoreName string
	// Degraded marks a server running without durable storage.
	Degraded bool
}

// NewRouter registers every API route. Each route accepts one method and
// answers any other with 405.
func NewRouter(d Deps) *http.ServeMux {
	var cache Invalidator
	if d.Reports != nil {
		cache = d.Reports
	}
	data := NewDataHandler(d.Repo, d.Ingester, cache, d.MaxUploadBytes)
	imports := NewImportHandler(d.Ingester, d.Archiver, d.Publisher, d.MaxUploadBytes)
	views := NewReportsHandler(d.Reports, d.Repo, d.Advisor)

	mux := http.NewServeMux()

	// Data endpoints
	mux.HandleFunc("/api/data", allow(http.MethodGet, data.GetData))
	mux.HandleFunc("/api/ingest", allow(http.MethodPost, data.Ingest))
	mux.HandleFunc("/api/clear", allow(http.MethodPost, data.Clear))

	// Statement file imports
	mux.HandleFunc("/api/import", allow(http.MethodPost, imports.Import))
	mux.HandleFunc("/api/import/async", allow(http.MethodPost, imports.ImportAsync))

	// Jobs endpoints
	if d.JobStore != nil {
		jobsHandler := NewJobsHandler(d.JobStore)
		mux.HandleFunc("/api/jobs", allow(http.MethodGet, jobsHandler.ListJobs))
		mux.HandleFunc("/api/jobs/{id}", allow(http.MethodGet, jobsHandler.GetJob))
	}

	// Read models
	mux.HandleFunc("/api/summary", allow(http.MethodGet, views.Summary))
	mux.HandleFunc("/api/reports", allow(http.MethodGet, views.Report))
	mux.HandleFunc("/api/months", allow(http.MethodGet, views.Months))
	mux.HandleFunc("/api/transactions", allow(http.MethodGet, views.Transactions))
	mux.HandleFunc("/api/insights", allow(http.MethodPost, views.Insights))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if d.Degraded {
			status = "degraded"
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": status,
			"store":  d.StoreName,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
