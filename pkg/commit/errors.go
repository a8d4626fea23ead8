package commit

import (
	"errors"
	"fmt"

	"github.com/adrianliechti/forge/pkg/document"
)

var (
	ErrValidation = errors.New("invalid commit")
	ErrConflict   = errors.New("commit conflict")
	ErrTransport  = errors.New("transport failure")

	// ErrRetriesExhausted wraps the last conflict once the retry budget is spent.
	ErrRetriesExhausted = errors.New("commit retries exhausted")

	ErrNoPlanner = errors.New("no planner configured")
)

// ValidationError reports malformed input. It is raised before any request
// is sent and is never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}

	return e.Code + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type ConflictKind string

const (
	ConflictContentHash    ConflictKind = "content_hash"
	ConflictOverlayVersion ConflictKind = "overlay_version"
	ConflictDecodeIdentity ConflictKind = "decode_identity"
)

// ConflictError is an optimistic concurrency mismatch reported by the store.
type ConflictError struct {
	Kind    ConflictKind
	Message string

	Details document.ConflictDetails
}

// NewConflictError derives the conflict kind from the details the store sent.
func NewConflictError(message string, details document.ConflictDetails) *ConflictError {
	kind := ConflictContentHash

	switch {
	case details.RetryHint == document.RetryHintRefreshDecoded:
		kind = ConflictDecodeIdentity

	case details.CurrentOverlayVersion != nil:
		kind = ConflictOverlayVersion
	}

	return &ConflictError{
		Kind:    kind,
		Message: message,

		Details: details,
	}
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s conflict", e.Kind)
	}

	return fmt.Sprintf("%s conflict: %s", e.Kind, e.Message)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TransportError is a network or server failure unrelated to conflicts.
// Blindly resending a write that may have been applied is unsafe, so it is
// returned to the caller as is.
type TransportError struct {
	StatusCode int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport failure (status %d): %v", e.StatusCode, e.Err)
	}

	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
