package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"recipes-api/internal/apperr"
	"recipes-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteAppError maps err onto a status code by kind. Anything that is not a
// known client error is reported to sentry and answered with fallback.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var appErr *apperr.Error
	hasAppErr := errors.As(err, &appErr)

	switch {
	case errors.Is(err, apperr.ErrValidation):
		if hasAppErr && len(appErr.Fields) > 0 {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"error": appErr.Message, "fields": appErr.Fields})
			return
		}
		WriteError(w, http.StatusBadRequest, apperr.Message(err, "invalid input"))
	case errors.Is(err, apperr.ErrConflict):
		WriteError(w, http.StatusConflict, apperr.Message(err, "conflict"))
	case errors.Is(err, apperr.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, apperr.Message(err, "unauthenticated"))
	case errors.Is(err, apperr.ErrNotFound):
		WriteError(w, http.StatusNotFound, apperr.Message(err, "not found"))
	default:
		observability.CaptureError(r.Context(), err)
		WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// DecodeJSON reads a single JSON object from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("No input data provided")
		}
		return apperr.Validation("payload must be a valid json")
	}
	if decoder.More() {
		return apperr.Validation("payload must be a single json object")
	}

	return nil
}
