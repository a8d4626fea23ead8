package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handlePatches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	patchsets, err := h.Overlay.Patchsets(r.Context(), id)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, PatchesResponse{
		DocumentID: id,
		Patchsets:  patchsets,
	})
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reverted, err := h.Overlay.RevertLast(r.Context(), id)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	version, err := h.Store.OverlayVersion(r.Context(), id, reverted.PageIndex)

	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJson(w, RevertResponse{
		Reverted:       *reverted,
		OverlayVersion: version,
	})
}
