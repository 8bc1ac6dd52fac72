package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Driver stores objects on any S3-compatible backend (MinIO, AWS S3,
// Cloudflare R2). Per-object visibility is not expressible through the
// S3 API we use; reads of private buckets go through presigned URLs.
type S3Driver struct {
	name       string
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewS3Driver creates the client and verifies the bucket exists.
func NewS3Driver(cfg Config) (*S3Driver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required for s3 storage")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3Driver{
		name:       cfg.Name,
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (d *S3Driver) Name() string { return d.name }

// Store streams the object to the bucket under folder/name.
func (d *S3Driver) Store(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error) {
	key := joinKey(folder, name)

	_, err := d.client.PutObject(ctx, d.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return key, nil
}

// SetVisibility is not expressible per object on S3-compatible stores;
// bucket policy decides.
func (d *S3Driver) SetVisibility(ctx context.Context, key string, visibility Visibility) error {
	return ErrUnsupported
}

// Delete removes the object. Missing keys report false without error.
func (d *S3Driver) Delete(ctx context.Context, key string) (bool, error) {
	_, err := d.client.StatObject(ctx, d.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat object %q: %w", key, err)
	}

	if err := d.client.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("remove object %q: %w", key, err)
	}
	return true, nil
}

// Open returns a read stream for the object. GetObject is lazy, so a
// Stat round trip surfaces NotFound before the caller starts reading.
func (d *S3Driver) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return obj, nil
}

// PublicURL is present only when a public base (CDN or public bucket
// endpoint) is configured.
func (d *S3Driver) PublicURL(key string) (string, bool) {
	if d.publicBase == "" {
		return "", false
	}
	return d.publicBase + "/" + key, true
}

// TemporaryURL returns a presigned GET URL valid for expiry.
func (d *S3Driver) TemporaryURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, d.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return u.String(), nil
}

// SupportsLocalProcessing: remote objects would need a download and
// re-upload round trip, so image processing is skipped on this disk.
func (d *S3Driver) SupportsLocalProcessing() bool { return false }

func joinKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
