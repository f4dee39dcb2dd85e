package main

import (
	"fmt"

	"github.com/shovehq/shove/internal/config"
	"github.com/shovehq/shove/internal/logging"
	"github.com/shovehq/shove/internal/objectstore"
	"github.com/shovehq/shove/internal/upload"
	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <dir>",
		Short: "Publish a local directory as the site's new content manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args[0])
		},
	}
}

func runUpload(cmd *cobra.Command, dir string) error {
	cfg, err := config.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := cmd.Context()
	store, err := objectstore.New(ctx, objectstore.Config{
		BucketName:      cfg.Store.BucketName,
		AccessKeyID:     cfg.Store.AccessKeyID,
		SecretAccessKey: cfg.Store.SecretAccessKey,
		EndpointURL:     cfg.Store.EndpointURL,
	})
	if err != nil {
		return fmt.Errorf("connect to object store: %w", err)
	}

	uploader := upload.New(store, logger)
	result, err := uploader.Upload(ctx, dir)
	if err != nil {
		return fmt.Errorf("upload %s: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d file(s), published manifest with root %q\n", result.FilesUploaded, result.Manifest.Root)
	return nil
}
