package api

import (
	"errors"
	"net/http"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/planner"

	"github.com/go-chi/chi/v5"
)

var (
	errNoPages   = errors.New("document has no pages")
	errNoPlanner = errors.New("no planner configured")
)

func (h *Handler) handleOverlay(w http.ResponseWriter, r *http.Request) {
	index, err := valuePageIndex(r)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := h.Overlay.Overlay(r.Context(), chi.URLParam(r, "id"), index)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, state)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req document.CommitRequest

	if err := readJson(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Overlay.Commit(r.Context(), chi.URLParam(r, "id"), &req)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, result)
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest

	if err := readJson(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(req.Selection) == 0 {
		writeFailure(w, r, &overlay.ValidationError{Code: overlay.CodeMissingSelection, Message: "selection is required"})
		return
	}

	p, err := h.Planner(req.Planner)

	if err != nil {
		writeError(w, http.StatusNotFound, errNoPlanner)
		return
	}

	plan, err := p.Plan(r.Context(), &planner.Request{
		DocumentID: chi.URLParam(r, "id"),
		PageIndex:  req.PageIndex,

		Selection: req.Selection,
		Prompt:    req.Prompt,

		BaseOverlayVersion: req.BaseOverlayVersion,
	})

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, plan)
}

func (h *Handler) handleHitTest(w http.ResponseWriter, r *http.Request) {
	var req overlay.HitTestRequest

	if err := readJson(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Overlay.HitTest(r.Context(), chi.URLParam(r, "id"), &req)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, result)
}
