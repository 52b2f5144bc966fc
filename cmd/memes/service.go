package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagarc03/memes"
	"github.com/sagarc03/memes/config"
	"github.com/sagarc03/memes/database"
)

// runtime is the service wired to the configured database and blob store.
type runtime struct {
	service *memes.MemeService
	blobs   *blobBackend
	db      database.Database
}

// openRuntime opens the database and blob store from cfg and builds the
// meme service on top of them. Call close when done.
func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	slog.Info("connected to database", "type", cfg.Database.Type, "table", cfg.Database.Tables.Memes)

	blobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	service, err := memes.NewMemeService(db.GetRepo(), blobs.store, cfg.ServiceConfig())
	if err != nil {
		_ = blobs.close()
		_ = db.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &runtime{service: service, blobs: blobs, db: db}, nil
}

func (r *runtime) close() {
	if err := r.blobs.close(); err != nil {
		slog.Warn("failed to close blob store", "err", err)
	}
	if err := r.db.Close(); err != nil {
		slog.Warn("failed to close database", "err", err)
	}
}
