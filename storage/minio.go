package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"tracksvc/config"
	"tracksvc/logger"
	"tracksvc/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the subset of *minio.Client used for exports.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewMinioClient creates a MinIO client from cfg.
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return client, nil
}

// Snapshot is the exported document.
type Snapshot struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Count      int            `json:"count"`
	Tracks     []*model.Track `json:"tracks"`
}

// Exporter writes track snapshots into a bucket.
type Exporter struct {
	store  ObjectStore
	bucket string
	region string
	now    func() time.Time
}

// NewExporter creates an Exporter writing to bucket.
func NewExporter(store ObjectStore, bucket, region string) *Exporter {
	return &Exporter{store: store, bucket: bucket, region: region, now: time.Now}
}

// ObjectName is the default object key for a snapshot taken at t.
func ObjectName(t time.Time) string {
	return "exports/tracks-" + t.UTC().Format("20060102T150405Z") + ".json"
}

// Export uploads tracks as a JSON snapshot. An empty objectName picks
// ObjectName(now). The bucket is created when missing.
func (e *Exporter) Export(ctx context.Context, objectName string, tracks []*model.Track) (minio.UploadInfo, error) {
	now := e.now()
	if objectName == "" {
		objectName = ObjectName(now)
	}

	if err := e.ensureBucket(ctx); err != nil {
		return minio.UploadInfo{}, err
	}

	body, err := json.MarshalIndent(Snapshot{ExportedAt: now.UTC(), Count: len(tracks), Tracks: tracks}, "", "  ")
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	info, err := e.store.PutObject(ctx, e.bucket, objectName, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("failed to upload %s/%s: %w", e.bucket, objectName, err)
	}

	logger.Info("exported tracks",
		logger.String("bucket", e.bucket),
		logger.String("object", objectName),
		logger.Int("count", len(tracks)),
	)
	return info, nil
}

func (e *Exporter) ensureBucket(ctx context.Context) error {
	exists, err := e.store.BucketExists(ctx, e.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", e.bucket, err)
	}
	if exists {
		return nil
	}
	if err := e.store.MakeBucket(ctx, e.bucket, minio.MakeBucketOptions{Region: e.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", e.bucket, err)
	}
	logger.Info("created bucket", logger.String("bucket", e.bucket))
	return nil
}
