package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/spf13/cobra"
)

func uploadCmd() *cobra.Command {
	var bucket, object, file string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a statement file to a Cloud Storage bucket",
		Long: `Upload a local statement to Cloud Storage. The printed gs:// URI can be
passed to "analyze --gcs-uri" or to the HTTP API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bucket == "" {
				bucket = cfg.GCSBucket
			}
			if bucket == "" {
				return errors.New("--bucket is required (or set GCS_BUCKET)")
			}
			if object == "" {
				object = filepath.Base(file)
			}

			ctx := cmd.Context()
			store, err := documents.NewGCSStore(ctx, cfg.GoogleCredentialsFile)
			if err != nil {
				return err
			}
			defer store.Close()

			log.Info().
				Str("bucket", bucket).
				Str("object", object).
				Str("file", file).
				Msg("Uploading file to GCS")

			uri, err := documents.UploadFile(ctx, store, bucket, object, file)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", file, uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket name (default GCS_BUCKET)")
	cmd.Flags().StringVar(&object, "object", "", "GCS object name (defaults to the file name)")
	cmd.Flags().StringVar(&file, "file", "", "path to the local statement file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
