package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every error
// body has the same shape:
//
//	{"error": "not_found", "message": "tool not found with id 42"}
//
// "detail" is added when there is something more specific to say, e.g. the
// OAuth provider's own error text.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
)

// maxBodyBytes bounds request bodies; tool payloads are tiny.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`            // machine-readable type, e.g. "not_found"
	Message string `json:"message"`          // human-readable text
	Detail  string `json:"detail,omitempty"` // optional extra context
}

// DetailResponse is the body of delete and logout.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// writeJSON sets the header, then the status, then the body. Headers set
// after WriteHeader are silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			zap.L().Error("failed to encode JSON response", zap.Error(err))
		}
	}
}

// statusFor maps a domain error to its HTTP status and error type.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrAuth):
		return http.StatusBadRequest, "auth_error"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, apperror.ErrConfig):
		return http.StatusInternalServerError, "config_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError translates err into a JSON error response.
//
// Only *apperror.AppError messages reach the client. Anything else is an
// unexpected failure whose text may contain SQL or file paths, so it is
// logged and replaced with a generic message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		zap.L().Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, errorType := statusFor(err)
	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields,
// trailing data and oversized bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body must not be empty")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", "request body is too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return apperror.ValidationFailed(strings.Trim(field, `"`), "unknown field "+field)
		default:
			return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
		}
	}

	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// intParam parses an optional integer query parameter. An absent or empty
// value yields def.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "id must be an integer")
	}
	return id, nil
}
