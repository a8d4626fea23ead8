package overlay

import (
	"errors"
	"net/http"

	"github.com/adrianliechti/forge/pkg/document"
)

const (
	CodeDocumentMismatch   = "DOC_ID_MISMATCH"
	CodeMissingSelection   = "missing_selection"
	CodeMissingBaseVersion = "missing_base_version"
	CodeEmptyPatchset      = "empty_patchset"
	CodeOutOfScope         = "PATCH_OUT_OF_SCOPE"
	CodeTargetNotFound     = "patch_target_not_found"
	CodeInvalidOp          = "invalid_op"
	CodeConflict           = "PATCH_CONFLICT"
)

var ErrPageNotFound = errors.New("page not found")

// ValidationError rejects a request before anything is read or written.
type ValidationError struct {
	Code    string
	Message string

	Details map[string]any
}

func (e *ValidationError) Error() string {
	return e.Code + ": " + e.Message
}

// StatusCode reports 409 for requests that contradict the stored document
// and 400 for malformed ones.
func (e *ValidationError) StatusCode() int {
	switch e.Code {
	case CodeDocumentMismatch, CodeOutOfScope, CodeTargetNotFound:
		return http.StatusConflict
	}

	return http.StatusBadRequest
}

// ConflictError reports that the request was based on stale state.
type ConflictError struct {
	Message string

	Details document.ConflictDetails
}

func (e *ConflictError) Error() string {
	return CodeConflict + ": " + e.Message
}
