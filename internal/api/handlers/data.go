package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ingest"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/store"
)

// Client-facing messages of the data endpoints.
const (
	msgMissingPayload = "Missing payload."
	msgSaveFailed     = "Failed to save data."
	msgLoadFailed     = "Failed to load data."
	msgClearFailed    = "Failed to clear data."
)

// DataHandler serves the raw data endpoints: read all, ingest and clear.
type DataHandler struct {
	repo     store.Repository
	ingester Ingester
	cache    Invalidator
	maxBytes int64
}

// NewDataHandler creates a new data handler. cache may be nil.
func NewDataHandler(repo store.Repository, ingester Ingester, cache Invalidator, maxBytes int64) *DataHandler {
	return &DataHandler{
		repo:     repo,
		ingester: ingester,
		cache:    cache,
		maxBytes: maxBytes,
	}
}

type dataResponse struct {
	Uploads      []domain.Batch             `json:"uploads"`
	Transactions []domain.TransactionRecord `json:"transactions"`
}

// GetData handles GET /api/data
func (h *DataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	uploads, err := h.repo.ListBatches(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list uploads")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	transactions, err := h.repo.ListRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}

	// Return arrays, never null, for frontend compatibility
	if uploads == nil {
		uploads = []domain.Batch{}
	}
	if transactions == nil {
		transactions = []domain.TransactionRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, dataResponse{Uploads: uploads, Transactions: transactions})
}

type ingestPayload struct {
	UploadID     string             `json:"uploadId"`
	Filename     string             `json:"filename"`
	Timestamp    string             `json:"timestamp"`
	Transactions []domain.RawRecord `json:"transactions"`
}

// Ingest handles POST /api/ingest
func (h *DataHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	payload, err := h.decodePayload(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected ingest payload")
		middleware.WriteError(w, http.StatusBadRequest, msgMissingPayload)
		return
	}

	meta := ingest.BatchMeta{
		UploadID:  payload.UploadID,
		Filename:  payload.Filename,
		Timestamp: payload.Timestamp,
	}
	result, err := h.ingester.IngestRecords(ctx, meta, payload.Transactions)
	if err != nil {
		log.Error().Err(err).Str("upload_id", payload.UploadID).Msg("Failed to ingest transactions")
		middleware.WriteError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

var errEmptyPayload = errors.New("empty payload")

// decodePayload treats an empty body and a JSON null alike as missing.
func (h *DataHandler) decodePayload(w http.ResponseWriter, r *http.Request) (*ingestPayload, error) {
	if r.Body == nil {
		return nil, errEmptyPayload
	}
	body := r.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errEmptyPayload
	}

	var payload ingestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Clear handles POST /api/clear
func (h *DataHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if err := h.repo.ClearAll(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear data")
		middleware.WriteError(w, http.StatusInternalServerError, msgClearFailed)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}

	log.Info().Msg("All uploads cleared")
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
