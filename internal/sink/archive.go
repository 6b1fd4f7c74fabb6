package sink

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sentinel/internal/config"
	"sentinel/internal/services"
)

// ObjectStore is the subset of the minio client the archive uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader *strings.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type minioStore struct {
	client *minio.Client
}

func (m minioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m minioStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.client.MakeBucket(ctx, bucket, opts)
}

func (m minioStore) PutObject(ctx context.Context, bucket, object string, reader *strings.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.client.PutObject(ctx, bucket, object, reader, size, opts)
}

// Archive uploads each report as a text object.
type Archive struct {
	store  ObjectStore
	bucket string
	prefix string

	mu    sync.Mutex
	ready bool
}

// NewArchive connects to the configured S3-compatible endpoint.
func NewArchive(cfg config.Archive) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sink", "archive", "create client", err)
	}
	return NewArchiveWithStore(minioStore{client: client}, cfg.Bucket, cfg.Prefix), nil
}

// NewArchiveWithStore builds an archive on an existing object store.
func NewArchiveWithStore(store ObjectStore, bucket, prefix string) *Archive {
	return &Archive{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (a *Archive) Name() string { return "archive" }

// ObjectKey returns <prefix>/<yyyy>/<mm>/<dd>/<cycle-id>.txt.
func (a *Archive) ObjectKey(report Report) string {
	created := report.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	created = created.UTC()
	id := report.CycleID
	if id == "" {
		id = created.Format("20060102T150405.000000000Z")
	}
	return path.Join(a.prefix, created.Format("2006"), created.Format("01"), created.Format("02"), id+".txt")
}

func (a *Archive) Write(ctx context.Context, report Report) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	body := Render(report)
	key := a.ObjectKey(report)
	reader := strings.NewReader(body)
	_, err := a.store.PutObject(ctx, a.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
		UserMetadata: map[string]string{
			"status":    report.Status(),
			"escalated": fmt.Sprintf("%t", report.Escalated),
		},
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "sink", "archive", "put "+key, err)
	}
	return nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "sink", "archive", "check bucket "+a.bucket, err)
	}
	if !exists {
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return services.Wrap(services.ErrPersistence, "sink", "archive", "make bucket "+a.bucket, err)
		}
	}
	a.ready = true
	return nil
}

func (a *Archive) Close() error { return nil }
