package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// One slice of cases, one loop. Each case gets a name that shows up in
// `go test -v` output, e.g. TestErrorsIs/NotFound_wraps_ErrNotFound.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("tool", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("tool", "url http://x"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("not logged in"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "AuthFailed wraps ErrAuth",
			err:       AuthFailed("authentication failed", "invalid_grant"),
			target:    ErrAuth,
			wantMatch: true,
		},
		{
			name:      "Upstream wraps ErrUpstream",
			err:       Upstream("embedding model", errors.New("boom")),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "Config wraps ErrConfig",
			err:       Config("SESSION_SECRET_KEY", "session secret is required"),
			target:    ErrConfig,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("creating tool: %w", Conflict("tool", "url http://x")),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("tool", "42"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrAuth",
			err:       Unauthorized("not logged in"),
			target:    ErrAuth,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("tool", "42"),
			wantMessage: "tool not found with id 42",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and key",
			err:         Conflict("tool", "url http://x"),
			wantMessage: "tool already exists with url http://x",
		},
		{
			name:        "Upstream names the service",
			err:         Upstream("embedding model", nil),
			wantMessage: "embedding model is unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("tool", "42")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("url", "url is required")
	if err.Field != "url" {
		t.Errorf("Field = %q, want %q", err.Field, "url")
	}
}

func TestDetail(t *testing.T) {
	if got := Upstream("embedding model", errors.New("timeout")).Detail; got != "timeout" {
		t.Errorf("Upstream Detail = %q, want %q", got, "timeout")
	}
	if got := AuthFailed("authentication failed", "access_denied").Detail; got != "access_denied" {
		t.Errorf("AuthFailed Detail = %q, want %q", got, "access_denied")
	}
}
