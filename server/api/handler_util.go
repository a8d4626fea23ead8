package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/store"
)

const (
	codeInvalidRequest  = "invalid_request"
	codeNotFound        = "not_found"
	codeAlreadyExists   = "already_exists"
	codeNothingToRevert = "nothing_to_revert"
	codePlanningFailed  = "PLANNING_FAILED"
	codeInternal        = "internal_error"
)

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeInvalidRequest

	case http.StatusNotFound:
		return codeNotFound

	case http.StatusUnprocessableEntity:
		return codePlanningFailed
	}

	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// writeFailure maps service errors to status codes and the error body.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var validation *overlay.ValidationError
	var conflict *overlay.ConflictError

	switch {
	case errors.As(err, &conflict):
		details, _ := json.Marshal(conflict.Details)

		writeJsonStatus(w, http.StatusConflict, Error{
			Code:    overlay.CodeConflict,
			Message: conflict.Message,
			Details: details,
		})

	case errors.As(err, &validation):
		var details json.RawMessage

		if len(validation.Details) > 0 {
			details, _ = json.Marshal(validation.Details)
		}

		writeJsonStatus(w, validation.StatusCode(), Error{
			Code:    validation.Code,
			Message: validation.Message,
			Details: details,
		})

	case errors.Is(err, store.ErrNotFound), errors.Is(err, overlay.ErrPageNotFound):
		writeJsonStatus(w, http.StatusNotFound, Error{Code: codeNotFound, Message: err.Error()})

	case errors.Is(err, store.ErrAlreadyExists):
		writeJsonStatus(w, http.StatusConflict, Error{Code: codeAlreadyExists, Message: err.Error()})

	case errors.Is(err, store.ErrNothingToRevert):
		writeJsonStatus(w, http.StatusConflict, Error{Code: codeNothingToRevert, Message: err.Error()})

	case errors.Is(err, planner.ErrPlanningFailed):
		writeJsonStatus(w, http.StatusUnprocessableEntity, Error{Code: codePlanningFailed, Message: err.Error()})

	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJsonStatus(w, http.StatusInternalServerError, Error{Code: codeInternal, Message: err.Error()})
	}
}

func readJson(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func valuePageIndex(r *http.Request) (int, error) {
	val := r.URL.Query().Get("page_index")

	if val == "" {
		return 0, errors.New("page_index is required")
	}

	index, err := strconv.Atoi(val)

	if err != nil || index < 0 {
		return 0, errors.New("invalid page_index")
	}

	return index, nil
}
