// Package handler translates HTTP requests into gateway calls and gateway
// results (or errors) back into JSON responses.
//
// ERROR FORMAT:
// Every error response has the same shape:
//
//	{"error": "conflict", "message": "event is full"}
//
// "error" is a machine-readable kind (see the Kind* constants); "message" is
// the reason to show the user. The remote gateway maps the kind back onto the
// apperror sentinels so the taxonomy survives the round trip.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/eventhub/internal/apperror"
)

// Error kinds used in ErrorResponse.Error.
const (
	KindValidation   = "validation_error"
	KindNotFound     = "not_found"
	KindForbidden    = "forbidden"
	KindConflict     = "conflict"
	KindUnauthorized = "unauthorized"
	KindInternal     = "internal_error"
)

const maxRequestBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// StatusFor maps an error onto its HTTP status and kind.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, KindUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, KindForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, KindConflict
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// writeError sends err in the standard shape. Errors that carry no
// *apperror.AppError are internal: they are logged and the client only sees
// a generic message, never SQL or file paths.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   KindInternal,
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := StatusFor(err)
	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected so typos in field names surface as 400s
// instead of silently dropped input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}
