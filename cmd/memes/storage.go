package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/config"
	"github.com/sagarc03/memes/filesystem"
	memeshttp "github.com/sagarc03/memes/http"
	"github.com/sagarc03/memes/objectstore"
)

// blobBackend is the configured blob store. source is set only when the
// service itself has to serve the presigned URLs.
type blobBackend struct {
	store  memes.BlobStore
	source memeshttp.BlobSource
	close  func() error
}

// openBlobStore builds the configured blob store and makes sure its bucket
// exists.
func openBlobStore(ctx context.Context, cfg config.StorageConfig) (*blobBackend, error) {
	switch cfg.Type {
	case "minio":
		store, err := objectstore.New(cfg.ObjectStore())
		if err != nil {
			return nil, err
		}

		if _, err = store.EnsureBucket(ctx); err != nil {
			return nil, err
		}

		slog.Info("using object store", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.Bucket)
		return &blobBackend{store: store, close: func() error { return nil }}, nil

	case "filesystem":
		dir := filepath.Join(cfg.Filesystem.Path, cfg.Bucket)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(dir)
		if err != nil {
			return nil, fmt.Errorf("open storage root: %w", err)
		}

		signer, err := memes.NewURLSigner(cfg.Filesystem.AccessKey, cfg.Filesystem.SecretKey, cfg.Expiry())
		if err != nil {
			_ = root.Close()
			return nil, err
		}

		store, err := filesystem.New(root, signer, cfg.Filesystem.BaseURL)
		if err != nil {
			_ = root.Close()
			return nil, err
		}

		slog.Info("using filesystem store", "path", dir)
		return &blobBackend{store: store, source: store, close: root.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
