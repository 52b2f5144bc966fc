package memes

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

const (
	// MaxNameLength is the longest file name a meme may carry.
	MaxNameLength = 64
	// MaxDescriptionLength is the longest description a meme may carry.
	MaxDescriptionLength = 255
)

// Meme is the metadata record of one uploaded image.
type Meme struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MemeFields are the mutable columns of a meme record.
type MemeFields struct {
	Name        string
	Description string
}

// Upload is a file part supplied by a client. Size is the declared length.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Candidate returns the part of the upload that the validator inspects.
func (u Upload) Candidate() Candidate {
	return Candidate{Name: u.Name, ContentType: u.ContentType, Size: u.Size}
}

// Candidate is an upload as seen by the validator.
type Candidate struct {
	Name        string
	ContentType string
	Size        int64
}

// UpdateMeme describes a change to an existing meme. File is optional;
// without it only the description changes.
type UpdateMeme struct {
	ID          int64
	Description string
	File        *Upload
}

// ObjectInfo is one entry of a blob store listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Tables holds configurable table names for metadata storage.
type Tables struct {
	Memes string `mapstructure:"memes"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Memes == "" {
		return errors.New("validate tables: memes table name cannot be empty")
	}

	if !IsValidTableName(t.Memes) {
		return fmt.Errorf("validate tables: invalid memes table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Memes)
	}

	return nil
}
