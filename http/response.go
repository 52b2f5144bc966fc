package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/memes"
)

// MessageResponse is the body of every successful response.
type MessageResponse struct {
	Message any `json:"message"`
}

// DetailResponse is the body of every error response. Detail is either a
// string or a map of field names to messages.
type DetailResponse struct {
	Detail any `json:"detail"`
}

// WriteDetail writes a JSON error response
func WriteDetail(w http.ResponseWriter, code int, detail any) {
	if err := WriteJSON(w, code, DetailResponse{Detail: detail}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// WriteMessage writes a 200 JSON response wrapping message.
func WriteMessage(w http.ResponseWriter, message any) error {
	return WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	var verr *memes.ValidationError
	if errors.As(err, &verr) {
		WriteDetail(w, http.StatusBadRequest, verr.Fields)
		return
	}

	if errors.Is(err, memes.ErrNotFound) {
		WriteDetail(w, http.StatusBadRequest, "File not found")
		return
	}

	if errors.Is(err, memes.ErrUnauthorized) {
		WriteDetail(w, http.StatusForbidden, err.Error())
		return
	}

	if errors.Is(err, memes.ErrMetaDataStore) || errors.Is(err, memes.ErrBlobStore) || errors.Is(err, memes.ErrInvalidInput) {
		WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	// Default internal error
	WriteDetail(w, http.StatusInternalServerError, "Internal server error")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
