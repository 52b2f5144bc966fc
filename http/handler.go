package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/sagarc03/memes"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temp files.
const multipartMemory = 32 << 20

type Service interface {
	Create(ctx context.Context, upload memes.Upload, description string) (memes.Meme, error)
	Update(ctx context.Context, u memes.UpdateMeme) (memes.Meme, error)
	Delete(ctx context.Context, id int64) error
	Fetch(ctx context.Context, id int64) (string, error)
	List(ctx context.Context, page int) iter.Seq2[string, error]
}

// BlobSource serves blobs for presigned URLs issued by a local blob store.
type BlobSource interface {
	RequestVerifier
	Open(ctx context.Context, key string) (io.ReadSeekCloser, memes.ObjectInfo, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	CORS CORSConfig
	// MaxUploadSize caps request bodies in bytes. Zero means no limit.
	MaxUploadSize int64
	// Compress gzips compressible responses.
	Compress bool
	// Blobs enables GET /blobs/{key}. Nil when blobs live in an object store.
	Blobs BlobSource
}

// Handler provides the HTTP surface of the meme service.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with every route configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	if h.config.Compress {
		r.Use(func(next http.Handler) http.Handler {
			return gzhttp.GzipHandler(next)
		})
	}

	r.Route("/memes", func(r chi.Router) {
		if h.config.MaxUploadSize > 0 {
			r.Use(middleware.RequestSize(h.config.MaxUploadSize))
		}
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleFetch)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})

	if h.config.Blobs != nil {
		r.Route("/blobs", func(r chi.Router) {
			r.Use(SignedURLMiddleware(h.config.Blobs, "/blobs"))
			r.Get("/*", h.handleBlob)
		})
	}

	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			HandleError(w, fmt.Errorf("%w: invalid page %q", memes.ErrInvalidInput, raw))
			return
		}
		page = parsed
	}

	urls := []string{}
	for url, err := range h.service.List(r.Context(), page) {
		if err != nil {
			HandleError(w, err)
			return
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		_ = WriteMessage(w, "Memes not found")
		return
	}

	_ = WriteMessage(w, urls)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	upload, description, cleanup, err := parseMemeForm(r, true)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer cleanup()

	if _, err := h.service.Create(r.Context(), *upload, description); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteMessage(w, "Success")
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	id, err := memeID(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	url, err := h.service.Fetch(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteMessage(w, url)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := memeID(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	upload, description, cleanup, err := parseMemeForm(r, false)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer cleanup()

	_, err = h.service.Update(r.Context(), memes.UpdateMeme{ID: id, Description: description, File: upload})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteMessage(w, "Success")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := memeID(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteMessage(w, "Success")
}

func (h *Handler) handleBlob(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/blobs/")

	content, info, err := h.config.Blobs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, memes.ErrNotFound) {
			WriteDetail(w, http.StatusNotFound, "File not found")
			return
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("Content-Type", info.ContentType)
	http.ServeContent(w, r, key, info.LastModified, content)
}

func memeID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid meme id %q", memes.ErrInvalidInput, raw)
	}
	return id, nil
}

// parseMemeForm reads the description field and the file part of a
// multipart body. The returned cleanup releases the parsed form.
func parseMemeForm(r *http.Request, fileRequired bool) (*memes.Upload, string, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			verr := &memes.ValidationError{}
			verr.Add(memes.FieldSize, memes.MsgTooBig)
			return nil, "", noop, verr
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, "", noop, fmt.Errorf("%w: parse form: %w", memes.ErrInvalidInput, err)
		}
		if fileRequired {
			verr := &memes.ValidationError{}
			verr.Add(memes.FieldFile, memes.MsgRequired)
			return nil, "", noop, verr
		}
		// Without a multipart body only the description can change.
		return nil, r.FormValue("description"), noop, nil
	}

	cleanup := func() { _ = r.MultipartForm.RemoveAll() }
	description := r.FormValue("description")

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !fileRequired {
			return nil, description, cleanup, nil
		}
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			verr := &memes.ValidationError{}
			verr.Add(memes.FieldFile, memes.MsgRequired)
			return nil, "", noop, verr
		}
		return nil, "", noop, fmt.Errorf("%w: read file: %w", memes.ErrInvalidInput, err)
	}

	upload := newUpload(file, header)
	return &upload, description, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

func newUpload(file multipart.File, header *multipart.FileHeader) memes.Upload {
	return memes.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
}
