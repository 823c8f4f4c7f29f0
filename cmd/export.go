package cmd

import (
	"fmt"

	"tracksvc/config"
	"tracksvc/db"
	"tracksvc/query"
	"tracksvc/repository"
	"tracksvc/storage"

	"github.com/spf13/cobra"
)

var (
	exportBucket string
	exportObject string
	exportList   bool
)

const exportPrefix = "exports/"

// objectStore is what the export command needs from MinIO.
type objectStore interface {
	storage.ObjectStore
	storage.ObjectLister
}

// newObjectStore is replaced in tests.
var newObjectStore = func(cfg *config.Config) (objectStore, error) {
	return storage.NewMinioClient(cfg)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a JSON snapshot of all tracks to MinIO",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bucket := exportBucket
		if bucket == "" {
			bucket = cfg.MinioBucket
		}
		if exportList {
			return listExports(cmd, bucket)
		}

		gdb, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		tracks, err := repository.NewGormTrackRepository(gdb).FindAll(ctx, query.Criteria{})
		if err != nil {
			return fmt.Errorf("failed to read tracks: %w", err)
		}

		store, err := newObjectStore(cfg)
		if err != nil {
			return err
		}
		info, err := storage.NewExporter(store, bucket, cfg.MinioRegion).Export(ctx, exportObject, tracks)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tracks to %s/%s (%d bytes).\n", len(tracks), info.Bucket, info.Key, info.Size)
		return nil
	},
}

func listExports(cmd *cobra.Command, bucket string) error {
	store, err := newObjectStore(cfg)
	if err != nil {
		return err
	}
	objects, stats, err := storage.ListExports(cmd.Context(), store, bucket, exportPrefix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d snapshots in %s (%s)\n", stats.TotalObjects, bucket, storage.FormatSize(stats.TotalSize))
	for _, o := range objects {
		fmt.Fprintf(out, "  %s  %8s  %s\n", o.LastModified.Format("2006-01-02 15:04:05"), storage.FormatSize(o.Size), o.Key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportBucket, "bucket", "b", "", "target bucket (default MINIO_BUCKET)")
	exportCmd.Flags().StringVarP(&exportObject, "object", "o", "", "object key (default exports/tracks-<timestamp>.json)")
	exportCmd.Flags().BoolVarP(&exportList, "list", "l", false, "list stored snapshots instead of exporting")
	exportCmd.Example = `  # snapshot into the configured bucket
  tracksvc export

  # fixed object name in another bucket
  tracksvc export -b backups -o tracks/latest.json

  # show what has been exported so far
  tracksvc export --list`
}
