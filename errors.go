package memes

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned when a meme does not exist
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a signed URL does not verify
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMetaDataStore marks a failure reported by the metadata store
	ErrMetaDataStore = errors.New("metadata store")
	// ErrBlobStore marks a failure reported by the blob store
	ErrBlobStore = errors.New("blob store")
)

// ValidationError collects every failed check of an upload, keyed by field.
type ValidationError struct {
	Fields map[string][]string
}

// Add records a failure message for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Merge copies every failure of other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			e.Add(field, msg)
		}
	}
}

// Empty reports whether no failure was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// ErrOrNil returns e as an error, or nil if it holds no failures.
func (e *ValidationError) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, " %s: %s;", field, strings.Join(e.Fields[field], ", "))
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// metaDataErr tags err as a metadata store failure unless it is a domain error.
func metaDataErr(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrMetaDataStore, err)
}

// blobErr tags err as a blob store failure.
func blobErr(err error) error {
	return fmt.Errorf("%w: %w", ErrBlobStore, err)
}
