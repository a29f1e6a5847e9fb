package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates a concurrent writer updated the chat first.
	ErrConflict = errors.New("version conflict")
)

// ValidationError reports bad or missing input: no user message, a
// malformed body, or an API key that fails its format check. It is always
// raised before any upstream call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a non-2xx response from the retrieval service,
// carrying the raw status and detail text for the caller.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("retrieval service error: %d %s", e.Status, e.Detail)
}

// ProviderError reports a failure from an LLM backend: auth failure, rate
// limit, or network error surfaced by the provider API.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %d %s", e.Provider, e.Status, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
