package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/archive"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ingest"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/google/uuid"
)

const (
	// filesField is the multipart field carrying statement files.
	filesField = "files"

	// defaultMaxUploadBytes bounds multipart bodies when no limit is set.
	defaultMaxUploadBytes = 10 << 20
)

// ImportHandler handles statement file imports.
type ImportHandler struct {
	ingester  Ingester
	archiver  archive.Archiver
	publisher jobs.Publisher
	maxBytes  int64
}

// NewImportHandler creates a new import handler. archiver and publisher may
// be nil, which disables archiving and asynchronous imports.
func NewImportHandler(ingester Ingester, archiver archive.Archiver, publisher jobs.Publisher, maxBytes int64) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &ImportHandler{
		ingester:  ingester,
		archiver:  archiver,
		publisher: publisher,
		maxBytes:  maxBytes,
	}
}

// importRequest is the parsed multipart form.
type importRequest struct {
	meta  ingest.BatchMeta
	files []domain.ImportFile
}

// readImport reads the multipart body. The batch id is fixed here so
// archived objects and the stored batch share it.
func (h *ImportHandler) readImport(w http.ResponseWriter, r *http.Request) (*importRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	headers := r.MultipartForm.File[filesField]
	if len(headers) == 0 {
		return nil, errors.New("no files uploaded")
	}

	files := make([]domain.ImportFile, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		files = append(files, domain.ImportFile{Filename: fh.Filename, Content: content})
	}

	meta := ingest.BatchMeta{
		UploadID:  r.FormValue("uploadId"),
		Filename:  r.FormValue("filename"),
		Timestamp: r.FormValue("timestamp"),
	}
	if meta.UploadID == "" {
		meta.UploadID = uuid.NewString()
	}
	return &importRequest{meta: meta, files: files}, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// archiveFiles stores the raw files when an archiver is configured.
// Archiving is best effort: failures are logged and the import goes on.
func (h *ImportHandler) archiveFiles(ctx context.Context, batchID string, files []domain.ImportFile) []string {
	if h.archiver == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	var uris []string
	for _, f := range files {
		uri, err := h.archiver.Archive(ctx, batchID, f)
		if err != nil {
			log.Warn().Err(err).Str("filename", f.Filename).Msg("Failed to archive statement file")
			continue
		}
		uris = append(uris, uri)
	}
	return uris
}

type importResponse struct {
	domain.IngestResult
	ArchiveURIs []string `json:"archiveUris,omitempty"`
}

// Import handles POST /api/import
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := h.readImport(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected import request")
		middleware.WriteError(w, http.StatusBadRequest, "No statement files in request.")
		return
	}

	uris := h.archiveFiles(ctx, req.meta.UploadID, req.files)

	result, err := h.ingester.IngestFiles(ctx, req.files, req.meta)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidFile) {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid statement file.")
			return
		}
		log.Error().Err(err).Str("upload_id", req.meta.UploadID).Msg("Failed to import statements")
		middleware.WriteError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, importResponse{IngestResult: result, ArchiveURIs: uris})
}

// ImportAsync handles POST /api/import/async
func (h *ImportHandler) ImportAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Background imports are disabled.")
		return
	}

	req, err := h.readImport(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected import request")
		middleware.WriteError(w, http.StatusBadRequest, "No statement files in request.")
		return
	}

	filenames := make([]string, 0, len(req.files))
	for _, f := range req.files {
		filenames = append(filenames, f.Filename)
	}

	job := &jobs.ImportJob{
		JobID:       uuid.NewString(),
		UploadID:    req.meta.UploadID,
		Filenames:   filenames,
		Files:       req.files,
		ArchiveURIs: h.archiveFiles(ctx, req.meta.UploadID, req.files),
	}
	if err := h.publisher.PublishImport(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import.")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("upload_id", req.meta.UploadID).Msg("Import job enqueued")

	// A worker may already own job; answer from the request values.
	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobId":     job.JobID,
		"uploadId":  req.meta.UploadID,
		"filenames": filenames,
		"status":    jobs.JobStatusPending,
	})
}

// ImportJobHandler returns the queue handler that runs import jobs.
// Every job keeps its batch id across retries, so a retry merges into the
// same batch instead of creating a new one.
func ImportJobHandler(ingester Ingester) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", importJob.JobID).
			Str("upload_id", importJob.UploadID).
			Logger()
		log.Info().Int("files", len(importJob.Files)).Msg("Processing import job")

		start := time.Now()
		result, err := ingester.IngestFiles(ctx, importJob.Files, ingest.BatchMeta{UploadID: importJob.UploadID})
		if err != nil {
			return err
		}
		importJob.Result = &result

		log.Info().
			Int("inserted", result.InsertedCount).
			Dur("duration", time.Since(start)).
			Msg("Import job completed")
		return nil
	}
}
