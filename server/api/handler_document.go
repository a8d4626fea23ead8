package api

import (
	"net/http"

	"github.com/adrianliechti/forge/pkg/document"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var doc document.Document

	if err := readJson(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(doc.Pages) == 0 {
		writeError(w, http.StatusBadRequest, errNoPages)
		return
	}

	result, err := h.Overlay.Ingest(r.Context(), &doc)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJsonStatus(w, http.StatusCreated, result)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Overlay.Document(r.Context(), chi.URLParam(r, "id"))

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, documentInfo(doc))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Overlay.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDecoded(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Overlay.Decoded(r.Context(), chi.URLParam(r, "id"))

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, doc)
}

func (h *Handler) handleComposite(w http.ResponseWriter, r *http.Request) {
	index, err := valuePageIndex(r)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	page, err := h.Overlay.Composite(r.Context(), chi.URLParam(r, "id"), index)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, page)
}
