package memes

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf8"
)

// Field keys and messages reported by the validator.
const (
	FieldFilename    = "filename"
	FieldContentType = "content_type"
	FieldSize        = "size"
	FieldDescription = "description"
	FieldFile        = "file"

	MsgRequired      = "Missing data for required field."
	MsgNameTaken     = "A meme with the same name already exists"
	MsgInvalidType   = "Invalid file type"
	MsgTooBig        = "File too big"
	MsgInvalidName   = "Invalid file name"
	msgTooLongFormat = "Longer than maximum length %d."
)

// ValidationRules configures the upload checks.
type ValidationRules struct {
	// AllowedContentTypes is the content type allow-list, matched exactly.
	AllowedContentTypes []string
	// MaxFileSize is the largest declared size in bytes.
	MaxFileSize int64
}

// NameLookup checks whether a name is held by a live meme.
type NameLookup interface {
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
}

// Validator checks upload candidates before anything is written.
type Validator struct {
	lookup NameLookup
	rules  ValidationRules
}

func NewValidator(lookup NameLookup, rules ValidationRules) *Validator {
	return &Validator{lookup: lookup, rules: rules}
}

// Validate runs every check on c and returns a *ValidationError listing all
// failures. self is the id of the meme being updated, or 0 on create; a name
// held by self is not a conflict. A failing uniqueness lookup is returned as
// a metadata store error instead.
func (v *Validator) Validate(ctx context.Context, c Candidate, self int64) error {
	verr := &ValidationError{}

	switch {
	case c.Name == "":
		verr.Add(FieldFilename, MsgRequired)
	case utf8.RuneCountInString(c.Name) > MaxNameLength:
		verr.Add(FieldFilename, fmt.Sprintf(msgTooLongFormat, MaxNameLength))
	case !IsValidName(c.Name):
		verr.Add(FieldFilename, MsgInvalidName)
	default:
		taken, err := v.nameTaken(ctx, c.Name, self)
		if err != nil {
			return fmt.Errorf("validate %s: %w", c.Name, err)
		}
		if taken {
			verr.Add(FieldFilename, MsgNameTaken)
		}
	}

	if !slices.Contains(v.rules.AllowedContentTypes, c.ContentType) {
		verr.Add(FieldContentType, MsgInvalidType)
	}

	if c.Size > v.rules.MaxFileSize {
		verr.Add(FieldSize, MsgTooBig)
	}

	return verr.ErrOrNil()
}

func (v *Validator) nameTaken(ctx context.Context, name string, self int64) (bool, error) {
	taken, err := v.lookup.NameTaken(ctx, name, self)
	if err != nil {
		return false, metaDataErr(err)
	}
	return taken, nil
}

// ValidateDescription checks the description length.
func ValidateDescription(description string) *ValidationError {
	if utf8.RuneCountInString(description) <= MaxDescriptionLength {
		return nil
	}
	verr := &ValidationError{}
	verr.Add(FieldDescription, fmt.Sprintf(msgTooLongFormat, MaxDescriptionLength))
	return verr
}
