package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuth         = errors.New("authentication failed")
	ErrUpstream     = errors.New("upstream failure")
	ErrConfig       = errors.New("configuration error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Detail  string // Optional: extra context, e.g. the provider's error text
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that a unique key is already taken, e.g. a tool URL.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with %s", resource, key),
	}
}

// Unauthorized means there is no authenticated session. Maps to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// AuthFailed is a failed OAuth handshake: bad state, denied consent, or a
// rejected code exchange. Maps to 400 with the provider's text in Detail.
func AuthFailed(message, detail string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
		Detail:  detail,
	}
}

// Upstream wraps a failure of an external dependency such as the embedding
// model. Maps to 502.
func Upstream(service string, cause error) *AppError {
	e := &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s is unavailable", service),
	}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// Config reports a missing or invalid setting.
func Config(key, message string) *AppError {
	return &AppError{
		Err:     ErrConfig,
		Message: message,
		Field:   key,
	}
}
