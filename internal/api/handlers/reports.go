package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/insights"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/reports"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"github.com/dvloznov/finance-dashboard/internal/summary"
)

// ReportsHandler serves the read models: summaries, reports, filtered
// transactions and AI insights.
type ReportsHandler struct {
	service *reports.Service
	reader  store.Reader
	advisor insights.Advisor
}

// NewReportsHandler creates a new reports handler. advisor may be nil,
// in which case insights always return the fallback text.
func NewReportsHandler(service *reports.Service, reader store.Reader, advisor insights.Advisor) *ReportsHandler {
	return &ReportsHandler{
		service: service,
		reader:  reader,
		advisor: advisor,
	}
}

// Summary handles GET /api/summary?month=MM/YYYY
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, err := h.service.Dashboard(ctx, r.URL.Query().Get("month"))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to build summary")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

// Report handles GET /api/reports?month=MM/YYYY
func (h *ReportsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.Report(ctx, r.URL.Query().Get("month"))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to build report")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// Months handles GET /api/months
func (h *ReportsHandler) Months(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	months, err := h.service.Months(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list months")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"months": months})
}

// Transactions handles GET /api/transactions?q=&type=&month=
func (h *ReportsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	kind := summary.Kind(query.Get("type"))
	switch kind {
	case "", summary.KindAll, summary.KindIncome, summary.KindExpense:
	default:
		middleware.WriteError(w, http.StatusBadRequest, "type must be all, income or expense")
		return
	}

	records, err := h.reader.ListRecords(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}

	filter := summary.Filter{
		Query: query.Get("q"),
		Kind:  kind,
		Month: query.Get("month"),
	}
	middleware.WriteJSON(w, http.StatusOK, filter.Apply(records))
}

type insightsRequest struct {
	Month string `json:"month"`
}

// Insights handles POST /api/insights. The body is optional and may name
// a month; without it every stored record is analysed.
func (h *ReportsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req insightsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	records, err := h.reader.ListRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	records = summary.FilterMonth(records, req.Month)

	text := insights.FallbackMessage
	if h.advisor != nil && len(records) > 0 {
		text, err = h.advisor.Insights(ctx, records)
		if err != nil {
			log.Warn().Err(err).Msg("Insights unavailable, returning fallback")
			text = insights.FallbackMessage
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": text,
		"count":    len(records),
	})
}
