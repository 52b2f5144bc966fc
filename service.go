package memes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"time"
)

// MetaDataRepo defines the interface for meme record persistence.
// Implementations must handle concurrent access safely.
//
// All methods accept a context for cancellation and timeout control.
// Implementations should respect context cancellation and return appropriate errors.
type MetaDataRepo interface {
	// Insert creates a new record and returns it with its generated id.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - fields: Name and description of the new record
	//
	// Returns:
	//   - Meme: The created record
	//   - error: Any database error
	Insert(ctx context.Context, fields MemeFields) (Meme, error)

	// Get retrieves a record by id.
	//
	// Returns:
	//   - Meme: The record if found
	//   - error: ErrNotFound if the id doesn't exist, or other database errors
	Get(ctx context.Context, id int64) (Meme, error)

	// NameTaken reports whether a record holds the exact, case-sensitive
	// name. If the record excludeID already holds it, the name is not taken,
	// so keeping a name never conflicts. An excludeID of 0 excludes nothing.
	//
	// Returns:
	//   - bool: true if the name would conflict
	//   - error: Any database error
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)

	// Update replaces the name and description of a record and returns the
	// record as it was before the change. An empty fields.Name leaves the
	// name unchanged. The read and the write happen in one transaction.
	//
	// Returns:
	//   - Meme: The previous state of the record
	//   - error: ErrNotFound if the id doesn't exist, or other database errors
	Update(ctx context.Context, id int64, fields MemeFields) (Meme, error)

	// Delete removes a record and returns it.
	//
	// Returns:
	//   - Meme: The deleted record
	//   - error: ErrNotFound if the id doesn't exist, or other database errors
	Delete(ctx context.Context, id int64) (Meme, error)
}

// BlobStore defines the interface for the image bucket.
// Keys are meme names; the bucket is fixed per store instance.
type BlobStore interface {
	// Put writes content under key, replacing any existing blob.
	// size is the declared length of content.
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error

	// Remove deletes the blob under key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// List enumerates the bucket in the store's native order. Breaking out of
	// the loop stops the enumeration.
	List(ctx context.Context) iter.Seq2[ObjectInfo, error]

	// PresignedURL returns a time-limited URL granting read access to key.
	PresignedURL(ctx context.Context, key string) (string, error)
}

// ServiceConfig holds configuration options for MemeService.
type ServiceConfig struct {
	Rules          ValidationRules
	PageSize       int           // Keys per list page (default: 10)
	StoreTimeout   time.Duration // Timeout for each store call (default: 10s)
	CleanupTimeout time.Duration // Timeout for compensating writes (default: 30s)
}

// MemeService keeps a meme record and its blob in step.
type MemeService struct {
	repo           MetaDataRepo
	blobs          BlobStore
	validator      *Validator
	pageSize       int
	storeTimeout   time.Duration
	cleanupTimeout time.Duration
}

func NewMemeService(repo MetaDataRepo, blobs BlobStore, cfg ServiceConfig) (*MemeService, error) {
	if len(cfg.Rules.AllowedContentTypes) == 0 {
		return nil, errors.New("new meme service: allowed content types cannot be empty")
	}
	if cfg.Rules.MaxFileSize <= 0 {
		return nil, fmt.Errorf("new meme service: invalid max file size: %d", cfg.Rules.MaxFileSize)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 10 * time.Second
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &MemeService{
		repo:           repo,
		blobs:          blobs,
		validator:      NewValidator(repo, cfg.Rules),
		pageSize:       pageSize,
		storeTimeout:   storeTimeout,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// PageSize returns the number of keys per list page.
func (s *MemeService) PageSize() int {
	return s.pageSize
}

// Create validates an upload, inserts its record and writes its blob.
//
// Nothing is written when validation fails. If the blob write fails after the
// record was inserted, the record is deleted again using a background context
// bounded by the cleanup timeout, so the caller's cancellation cannot leave a
// record without a blob.
//
// Error types returned:
//   - *ValidationError (matches ErrInvalidInput): one or more checks failed
//   - ErrMetaDataStore: the uniqueness lookup or the insert failed
//   - ErrBlobStore: the blob write failed
//   - context.Canceled or context.DeadlineExceeded: ctx was done before starting
func (s *MemeService) Create(ctx context.Context, upload Upload, description string) (Meme, error) {
	if err := ctx.Err(); err != nil {
		return Meme{}, fmt.Errorf("create meme: %w", err)
	}

	if err := s.validate(ctx, upload.Candidate(), 0, description); err != nil {
		return Meme{}, fmt.Errorf("create meme: %w", err)
	}

	m, err := withTimeout(ctx, s.storeTimeout, func(ctx context.Context) (Meme, error) {
		return s.repo.Insert(ctx, MemeFields{Name: upload.Name, Description: description})
	})
	if err != nil {
		return Meme{}, fmt.Errorf("create meme %s: %w", upload.Name, metaDataErr(err))
	}

	putErr := s.put(ctx, upload)
	if putErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if _, delErr := s.repo.Delete(cleanupCtx, m.ID); delErr != nil {
			slog.Error("orphaned meme record", "id", m.ID, "name", m.Name, "error", delErr)
			return Meme{}, fmt.Errorf("create meme %s: blob write failed (%w) and cleanup failed: %w", upload.Name, blobErr(putErr), delErr)
		}
		return Meme{}, fmt.Errorf("create meme %s: %w", upload.Name, blobErr(putErr))
	}

	return m, nil
}

// Update changes the description of a meme and, when a file is supplied,
// its name and blob.
//
// The file is validated with the meme's own id excluded from the uniqueness
// check, so re-uploading under the current name is allowed. The new blob is
// written before the old one is removed. If that write fails the previous
// record is restored; if removing the old blob fails the record keeps the new
// name and the old blob is left behind.
func (s *MemeService) Update(ctx context.Context, u UpdateMeme) (Meme, error) {
	if err := ctx.Err(); err != nil {
		return Meme{}, fmt.Errorf("update meme: %w", err)
	}

	fields := MemeFields{Description: u.Description}
	if u.File != nil {
		if err := s.validate(ctx, u.File.Candidate(), u.ID, u.Description); err != nil {
			return Meme{}, fmt.Errorf("update meme %d: %w", u.ID, err)
		}
		fields.Name = u.File.Name
	} else if verr := ValidateDescription(u.Description); verr != nil {
		return Meme{}, fmt.Errorf("update meme %d: %w", u.ID, verr)
	}

	previous, err := withTimeout(ctx, s.storeTimeout, func(ctx context.Context) (Meme, error) {
		return s.repo.Update(ctx, u.ID, fields)
	})
	if err != nil {
		return Meme{}, fmt.Errorf("update meme %d: %w", u.ID, metaDataErr(err))
	}

	updated := Meme{ID: u.ID, Name: previous.Name, Description: u.Description}
	if u.File == nil {
		return updated, nil
	}
	updated.Name = u.File.Name

	if putErr := s.put(ctx, *u.File); putErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		restore := MemeFields{Name: previous.Name, Description: previous.Description}
		if _, restoreErr := s.repo.Update(cleanupCtx, u.ID, restore); restoreErr != nil {
			slog.Error("meme record left without blob", "id", u.ID, "name", updated.Name, "error", restoreErr)
			return Meme{}, fmt.Errorf("update meme %d: blob write failed (%w) and restore failed: %w", u.ID, blobErr(putErr), restoreErr)
		}
		return Meme{}, fmt.Errorf("update meme %d: %w", u.ID, blobErr(putErr))
	}

	if previous.Name != updated.Name {
		if err := s.remove(ctx, previous.Name); err != nil {
			slog.Warn("orphaned blob after rename", "id", u.ID, "key", previous.Name, "error", err)
			return Meme{}, fmt.Errorf("update meme %d: remove %s: %w", u.ID, previous.Name, blobErr(err))
		}
	}

	return updated, nil
}

// Delete removes a meme record and then its blob. A failing blob removal is
// reported after the record is already gone.
func (s *MemeService) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete meme: %w", err)
	}

	deleted, err := withTimeout(ctx, s.storeTimeout, func(ctx context.Context) (Meme, error) {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete meme %d: %w", id, metaDataErr(err))
	}

	if err := s.remove(ctx, deleted.Name); err != nil {
		slog.Warn("orphaned blob after delete", "id", id, "key", deleted.Name, "error", err)
		return fmt.Errorf("delete meme %d: remove %s: %w", id, deleted.Name, blobErr(err))
	}

	return nil
}

// Fetch returns a presigned URL for the blob of meme id.
func (s *MemeService) Fetch(ctx context.Context, id int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("fetch meme: %w", err)
	}

	m, err := withTimeout(ctx, s.storeTimeout, func(ctx context.Context) (Meme, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return "", fmt.Errorf("fetch meme %d: %w", id, metaDataErr(err))
	}

	url, err := s.presign(ctx, m.Name)
	if err != nil {
		return "", fmt.Errorf("fetch meme %d: %w", id, blobErr(err))
	}

	return url, nil
}

// List returns presigned URLs for one page of the bucket. Pages start at 1;
// page p covers keys [(p-1)*PageSize, p*PageSize) in the store's order.
//
// The sequence is lazy: the bucket is enumerated only while it is ranged
// over, and enumeration stops once the page is complete. Every range starts
// a fresh enumeration. Out of range pages yield nothing. The listing as a
// whole is bounded by the store timeout.
func (s *MemeService) List(ctx context.Context, page int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := ctx.Err(); err != nil {
			yield("", fmt.Errorf("list memes: %w", err))
			return
		}

		if page < 1 || page-1 > (math.MaxInt-s.pageSize)/s.pageSize {
			return
		}
		start := (page - 1) * s.pageSize
		end := start + s.pageSize

		listCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()

		i := 0
		for obj, err := range s.blobs.List(listCtx) {
			if err != nil {
				yield("", fmt.Errorf("list memes: %w", blobErr(err)))
				return
			}

			if i >= start {
				url, err := s.presign(ctx, obj.Key)
				if err != nil {
					yield("", fmt.Errorf("list memes: %s: %w", obj.Key, blobErr(err)))
					return
				}
				if !yield(url, nil) {
					return
				}
			}

			i++
			if i >= end {
				return
			}
		}
	}
}

func (s *MemeService) validate(ctx context.Context, c Candidate, self int64, description string) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.validator.Validate(lookupCtx, c, self)

	var verr *ValidationError
	switch {
	case err == nil:
		return ValidateDescription(description).ErrOrNil()
	case errors.As(err, &verr):
		verr.Merge(ValidateDescription(description))
		return verr
	default:
		return err
	}
}

func (s *MemeService) put(ctx context.Context, u Upload) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.blobs.Put(ctx, u.Name, u.Content, u.Size, u.ContentType)
}

func (s *MemeService) remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.blobs.Remove(ctx, key)
}

func (s *MemeService) presign(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.blobs.PresignedURL(ctx, key)
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
