// Package objectstore keeps meme blobs in an S3 compatible bucket through
// the MinIO client.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sagarc03/memes"
)

// Config holds the connection settings for an S3 compatible endpoint.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"required"`
	AccessKey string        `mapstructure:"access_key" validate:"required"`
	SecretKey string        `mapstructure:"secret_key" validate:"required"`
	Region    string        `mapstructure:"region"`
	Secure    bool          `mapstructure:"secure"`
	Bucket    string        `mapstructure:"-"`
	URLExpiry time.Duration `mapstructure:"-"`
}

// Store implements memes.BlobStore on a single bucket.
type Store struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// New creates a MinIO client from cfg. It does not contact the endpoint;
// call EnsureBucket for that.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("new object store: %w", err)
	}

	return NewWithClient(client, cfg.Bucket, cfg.URLExpiry)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *minio.Client, bucket string, expiry time.Duration) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("new object store: bucket cannot be empty")
	}
	if expiry < time.Second || expiry > memes.MaxExpiresSeconds*time.Second {
		return nil, fmt.Errorf("new object store: url expiry must be between 1s and 7 days, got %s", expiry)
	}

	return &Store{client: client, bucket: bucket, expiry: expiry}, nil
}

// EnsureBucket creates the bucket when it does not exist and reports
// whether it did.
func (s *Store) EnsureBucket(ctx context.Context) (bool, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return false, fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	if exists {
		slog.Debug("bucket exists", "bucket", s.bucket)
		return false, nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return false, fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}

	slog.Info("bucket created", "bucket", s.bucket)
	return true, nil
}

// Put uploads content under key. size is sent as the object length.
func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// List yields the bucket's objects in the server's key order. Stopping the
// iteration cancels the underlying listing request.
func (s *Store) List(ctx context.Context) iter.Seq2[memes.ObjectInfo, error] {
	return func(yield func(memes.ObjectInfo, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				yield(memes.ObjectInfo{}, fmt.Errorf("list %s: %w", s.bucket, obj.Err))
				return
			}

			info := memes.ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				ContentType:  obj.ContentType,
				LastModified: obj.LastModified,
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}

// PresignedURL returns a GET URL for key valid for the store's expiry.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}
