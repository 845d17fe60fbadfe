package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

const uploadTimeout = 2 * time.Minute

// GCSArchiver implements Archiver and Fetcher on a bucket. It assumes
// Application Default Credentials are configured; the client is created on
// first use.
type GCSArchiver struct {
	bucket string
	clock  func() time.Time

	mu     sync.Mutex
	client *storage.Client
}

// NewGCSArchiver creates an archiver writing to bucket.
func NewGCSArchiver(bucket string) *GCSArchiver {
	return &GCSArchiver{bucket: bucket, clock: time.Now}
}

func (a *GCSArchiver) storageClient(ctx context.Context) (*storage.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.client = client
	}
	return a.client, nil
}

// Archive implements Archiver.
func (a *GCSArchiver) Archive(ctx context.Context, batchID string, file domain.ImportFile) (string, error) {
	object := ObjectName(batchID, file.Filename, a.clock())
	if err := a.upload(ctx, object, file.Content); err != nil {
		return "", fmt.Errorf("Archive: %w", err)
	}

	uri := URI(a.bucket, object)
	log := logger.FromContext(ctx)
	log.Info().
		Str("batch_id", batchID).
		Str("uri", uri).
		Int("bytes", len(file.Content)).
		Msg("Archived statement file")
	return uri, nil
}

func (a *GCSArchiver) upload(ctx context.Context, object string, data []byte) error {
	client, err := a.storageClient(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	if ct := mime.TypeByExtension(filepath.Ext(object)); ct != "" {
		w.ContentType = ct
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Fetch implements Fetcher.
func (a *GCSArchiver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	client, err := a.storageClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// Ensure GCSArchiver implements Archiver and Fetcher interfaces.
var (
	_ Archiver = (*GCSArchiver)(nil)
	_ Fetcher  = (*GCSArchiver)(nil)
)
