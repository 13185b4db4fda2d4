package review

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying the failure taxonomy from spec §7. Callers
// use errors.Is against these to map a failure onto an HTTP status or an
// MCP result shape; wrapped errors carry additional context via %w.
var (
	// ErrNotFound indicates an unknown review, comment, or version.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input: missing required fields,
	// out-of-range offsets, or missing question coverage.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition indicates the state machine rejected the
	// requested transition.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStore indicates a persistence failure.
	ErrStore = errors.New("store error")

	// ErrTimeout indicates an ask_questions call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// ValidationErrorf wraps ErrValidation with a formatted message.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// InvalidTransitionf wraps ErrInvalidTransition with a formatted message.
func InvalidTransitionf(format string, args ...any) error {
	return fmt.Errorf(
		"%w: "+format, append([]any{ErrInvalidTransition}, args...)...,
	)
}

// StoreErrorf wraps ErrStore with a formatted message.
func StoreErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStore}, args...)...)
}
