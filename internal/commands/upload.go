package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/finance-dashboard/internal/archive"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newUploadCommand(a *app) *cobra.Command {
	var bucket, batchID string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Archive a raw statement file in GCS without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				bucket = a.cfg.GCSBucket
			}
			if bucket == "" {
				return errors.New("--bucket or GCS_BUCKET is required")
			}
			if batchID == "" {
				batchID = uuid.NewString()
			}
			return a.runUpload(cmd, archive.NewGCSArchiver(bucket), batchID, args[0])
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket (defaults to GCS_BUCKET)")
	cmd.Flags().StringVar(&batchID, "batch", "", "batch id used in the object name (generated when empty)")

	return cmd
}

func (a *app) runUpload(cmd *cobra.Command, archiver *archive.GCSArchiver, batchID, path string) error {
	ctx := a.context(cmd)
	defer archiver.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	a.log.Info().Str("file", path).Str("batch_id", batchID).Msg("Uploading statement to GCS")

	uri, err := archiver.Archive(ctx, batchID, domain.ImportFile{Filename: filepath.Base(path), Content: content})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	success(cmd.OutOrStdout(), "Uploaded %s to %s", path, uri)
	return nil
}
