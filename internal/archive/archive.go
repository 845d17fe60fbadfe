// Package archive keeps the raw statement files of each import in Google
// Cloud Storage.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Archiver stores a raw import file and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, batchID string, file domain.ImportFile) (string, error)
}

// Fetcher reads an archived file back.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ObjectName returns statements/YYYY/MM/DD/<batch>-<filename> for t in UTC.
// Path separators in filename are dropped.
func ObjectName(batchID, filename string, t time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = domain.DefaultFilename
	}
	return fmt.Sprintf("statements/%s/%s-%s", t.UTC().Format("2006/01/02"), batchID, name)
}

// URI formats a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseURI splits gs://bucket/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the file name from a GCS URI.
// e.g., "gs://bucket/statements/2025/03/01/b1-extrato.csv" → "b1-extrato.csv"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
