package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/finance-dashboard/internal/archive"
	"github.com/dvloznov/finance-dashboard/internal/categorize"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ingest"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type importOptions struct {
	uploadID  string
	filename  string
	policy    string
	chunkSize int
	archive   bool
}

func newImportCommand(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file|gs://bucket/object>...",
		Short: "Import statement files as one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.uploadID, "upload-id", "", "batch id (generated when empty)")
	cmd.Flags().StringVar(&opts.filename, "filename", "", "batch display name (defaults to the file names)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "batch write policy: first or last (defaults to BATCH_POLICY)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "records written concurrently per round (defaults to INGEST_CHUNK_SIZE)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "also copy the raw files to GCS_BUCKET")

	return cmd
}

// loadFiles reads local paths and gs:// URIs, keeping argument order.
func loadFiles(ctx context.Context, paths []string, fetcher archive.Fetcher) ([]domain.ImportFile, error) {
	files := make([]domain.ImportFile, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, "gs://") {
			content, err := fetcher.Fetch(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("fetching %s: %w", p, err)
			}
			files = append(files, domain.ImportFile{Filename: archive.FilenameFromURI(p), Content: content})
			continue
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		files = append(files, domain.ImportFile{Filename: filepath.Base(p), Content: content})
	}
	return files, nil
}

func (a *app) runImport(cmd *cobra.Command, paths []string, opts importOptions) error {
	ctx := a.context(cmd)
	out := cmd.OutOrStdout()

	gcs := archive.NewGCSArchiver(a.cfg.GCSBucket)
	defer gcs.Close()

	files, err := loadFiles(ctx, paths, gcs)
	if err != nil {
		return err
	}

	rules, err := categorize.Load(a.cfg.RulesFile)
	if err != nil {
		return err
	}
	repo, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	if opts.policy == "" {
		opts.policy = a.cfg.BatchPolicy
	}
	if opts.chunkSize <= 0 {
		opts.chunkSize = a.cfg.IngestChunkSize
	}
	if opts.uploadID == "" {
		opts.uploadID = uuid.NewString()
	}

	if opts.archive {
		if a.cfg.GCSBucket == "" {
			return fmt.Errorf("--archive needs GCS_BUCKET to be set")
		}
		for _, f := range files {
			uri, err := gcs.Archive(ctx, opts.uploadID, f)
			if err != nil {
				return fmt.Errorf("archiving %s: %w", f.Filename, err)
			}
			success(out, "Archived %s to %s", f.Filename, uri)
		}
	}

	coordinator := ingest.NewCoordinator(repo, ingest.Options{
		ChunkSize:  opts.chunkSize,
		Policy:     ingest.ParsePolicy(opts.policy),
		Classifier: rules,
	})
	result, err := coordinator.IngestFiles(ctx, files, ingest.BatchMeta{
		UploadID: opts.uploadID,
		Filename: opts.filename,
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	header(out, "Import "+result.Upload.ID)
	field(out, "Files", result.Upload.Filename)
	field(out, "Received", result.ReceivedCount)
	field(out, "Inserted", result.InsertedCount)
	field(out, "Duplicates", result.SkippedDuplicates)
	if result.InsertedCount == 0 && result.ReceivedCount > 0 {
		warning(out, "Nothing new: every row was already stored")
	} else {
		success(out, "Stored %d transactions", result.InsertedCount)
	}
	return nil
}
