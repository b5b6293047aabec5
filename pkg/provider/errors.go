package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors categorizing translation call failures.
var (
	// ErrContentSafety indicates the provider refused the prompt on
	// content-safety grounds. This is the only category the chunk
	// translator special-cases (recursive splitting).
	ErrContentSafety = errors.New("content blocked by safety filter")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRequest indicates the request was malformed or rejected
	// for non-safety validation reasons.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAuthExhausted indicates authentication failed or quota for the
	// credential is exhausted.
	ErrAuthExhausted = errors.New("authentication failed or quota exhausted")

	// ErrTransient indicates a temporary provider-side failure.
	ErrTransient = errors.New("transient provider failure")
)

// Error wraps provider failures with call context.
type Error struct {
	// Op is the operation that failed (e.g., "Translate").
	Op string

	// Provider is the provider type (e.g., "gemini").
	Provider Type

	// Model is the model the request targeted, if applicable.
	Model string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Model, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsContentSafety returns true if the error is a content-safety rejection.
func IsContentSafety(err error) bool {
	return errors.Is(err, ErrContentSafety)
}

// IsRateLimited returns true if the error indicates provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsInvalidRequest returns true if the error indicates a rejected request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsAuthExhausted returns true if the error indicates failed auth or
// exhausted credential quota.
func IsAuthExhausted(err error) bool {
	return errors.Is(err, ErrAuthExhausted)
}

// IsTransient returns true if the error indicates a temporary failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
