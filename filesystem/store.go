// Package filesystem provides a local directory blob store for memes.
// Writes are atomic via temp files, and presigned URLs are signed with a
// memes.URLSigner and served by the HTTP handler's /blobs route.
//
// The declared content type of each blob is kept in a sidecar file under
// <root>/meta with the same key. Blobs without a sidecar fall back to the
// type implied by their extension.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/memes"
)

const (
	objectsDir = "objects"
	metaDir    = "meta"
	tmpDir     = "tmp"

	// maxContentTypeLen bounds how much of a sidecar is read.
	maxContentTypeLen = 255
)

// Store keeps blobs as flat files under <root>/objects and their content
// types under <root>/meta.
type Store struct {
	root    *os.Root
	signer  *memes.URLSigner
	baseURL string
}

// New creates a Store on root. Presigned URLs are baseURL + "/" + key with
// the signer's query parameters appended.
// The root provides sandboxed file operations preventing path traversal.
func New(root *os.Root, signer *memes.URLSigner, baseURL string) (*Store, error) {
	if signer == nil {
		return nil, errors.New("new filesystem store: signer is required")
	}
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("new filesystem store: invalid base url %q", baseURL)
	}

	for _, dir := range []string{objectsDir, metaDir, tmpDir} {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("new filesystem store: create %s: %w", dir, err)
		}
	}

	return &Store{root: root, signer: signer, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func objectPath(key string) (string, error) {
	if !memes.IsValidName(key) {
		return "", fmt.Errorf("%w: invalid key %q", memes.ErrInvalidInput, key)
	}
	return path.Join(objectsDir, key), nil
}

func metaPath(key string) string {
	return path.Join(metaDir, key)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under key using a temp file and rename.
// When size is not negative, content must hold exactly size bytes.
// contentType is recorded in the key's sidecar; an empty contentType drops
// any previous sidecar so the extension decides.
func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	dest, err := objectPath(key)
	if err != nil {
		return err
	}
	contentType = strings.TrimSpace(contentType)
	if len(contentType) > maxContentTypeLen || strings.ContainsAny(contentType, "\r\n") {
		return fmt.Errorf("%w: invalid content type %q", memes.ErrInvalidInput, contentType)
	}

	objTmp, written, err := s.writeTemp(&ctxReader{ctx: ctx, r: content})
	if err != nil {
		return fmt.Errorf("could not copy file contents: %w", err)
	}
	defer s.removeTemp(objTmp)

	if size >= 0 && written != size {
		return fmt.Errorf("%w: declared %d bytes, read %d", memes.ErrInvalidInput, size, written)
	}

	if contentType == "" {
		if rmErr := s.root.Remove(metaPath(key)); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("failed to remove content type: %w", rmErr)
		}
	} else {
		metaTmp, _, metaErr := s.writeTemp(strings.NewReader(contentType))
		if metaErr != nil {
			return fmt.Errorf("could not write content type: %w", metaErr)
		}
		defer s.removeTemp(metaTmp)

		if renameErr := s.root.Rename(metaTmp, metaPath(key)); renameErr != nil {
			return fmt.Errorf("failed to rename content type file: %w", renameErr)
		}
	}

	if renameErr := s.root.Rename(objTmp, dest); renameErr != nil {
		return fmt.Errorf("failed to rename file: %w", renameErr)
	}

	return nil
}

// writeTemp copies r into a new synced file under tmp and returns its path.
// The file is removed again when writing fails.
func (s *Store) writeTemp(r io.Reader) (string, int64, error) {
	name := tmpFileName()
	t, err := s.root.Create(name)
	if err != nil {
		return "", 0, fmt.Errorf("could not open temp file: %w", err)
	}

	written, err := io.Copy(t, r)
	if err == nil {
		err = t.Sync()
	}
	if closeErr := t.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeTemp(name)
		return "", 0, err
	}
	return name, written, nil
}

// removeTemp deletes a leftover temp file. Renamed files are already gone.
func (s *Store) removeTemp(name string) {
	if err := s.root.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove tmp file", "err", err)
	}
}

// Remove deletes the blob under key. A missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := objectPath(key)
	if err != nil {
		return err
	}

	if err := s.root.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete file: %w", err)
	}
	if err := s.root.Remove(metaPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete content type: %w", err)
	}
	return nil
}

// List yields the stored blobs in lexical key order. The directory is read
// when iteration starts.
func (s *Store) List(ctx context.Context) iter.Seq2[memes.ObjectInfo, error] {
	return func(yield func(memes.ObjectInfo, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(memes.ObjectInfo{}, err)
			return
		}

		entries, err := fs.ReadDir(s.root.FS(), objectsDir)
		if err != nil {
			yield(memes.ObjectInfo{}, fmt.Errorf("failed to list files: %w", err))
			return
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(memes.ObjectInfo{}, err)
				return
			}

			if !entry.Type().IsRegular() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				yield(memes.ObjectInfo{}, fmt.Errorf("failed to stat %s: %w", entry.Name(), err))
				return
			}

			obj := memes.ObjectInfo{
				Key:          entry.Name(),
				Size:         info.Size(),
				ContentType:  s.contentType(entry.Name()),
				LastModified: info.ModTime(),
			}
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// PresignedURL returns a signed GET URL for key. The blob does not need to
// exist yet.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := objectPath(key); err != nil {
		return "", err
	}

	query := s.signer.Sign("/" + key)
	return s.baseURL + "/" + url.PathEscape(key) + "?" + query.Encode(), nil
}

// Open returns the blob under key for reading along with its info.
// Returns memes.ErrNotFound if the blob does not exist.
func (s *Store) Open(ctx context.Context, key string) (io.ReadSeekCloser, memes.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, memes.ObjectInfo{}, err
	}

	p, err := objectPath(key)
	if err != nil {
		return nil, memes.ObjectInfo{}, memes.ErrNotFound
	}

	f, err := s.root.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, memes.ObjectInfo{}, memes.ErrNotFound
		}
		return nil, memes.ObjectInfo{}, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, memes.ObjectInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}

	return f, memes.ObjectInfo{
		Key:          key,
		Size:         info.Size(),
		ContentType:  s.contentType(key),
		LastModified: info.ModTime(),
	}, nil
}

// Verify checks a presigned request for path, the decoded URL path relative
// to the base URL.
func (s *Store) Verify(method, path string, query url.Values) error {
	return s.signer.Verify(method, path, query)
}

// contentType returns the type recorded for key, or the one implied by its
// extension when there is no readable sidecar.
func (s *Store) contentType(key string) string {
	f, err := s.root.Open(metaPath(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to open content type", "key", key, "err", err)
		}
		return detectContentType(key)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxContentTypeLen))
	if err != nil {
		slog.Warn("failed to read content type", "key", key, "err", err)
		return detectContentType(key)
	}
	if ct := strings.TrimSpace(string(data)); ct != "" {
		return ct
	}
	return detectContentType(key)
}

func detectContentType(name string) string {
	contentType := mime.TypeByExtension(filepath.Ext(name))

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

func tmpFileName() string {
	return path.Join(tmpDir, fmt.Sprintf(".t%s", uuid.New().String()))
}
