package api

import (
	"encoding/json"
	"net/http"

	"github.com/adrianliechti/forge/config"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	*config.Config
}

func New(cfg *config.Config) (*Handler, error) {
	h := &Handler{
		Config: cfg,
	}

	return h, nil
}

func (h *Handler) Attach(r chi.Router) {
	r.Post("/documents", h.handleIngest)

	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", h.handleDocument)
		r.Delete("/", h.handleDelete)

		r.Get("/decoded", h.handleDecoded)
		r.Get("/composite", h.handleComposite)

		r.Get("/overlay", h.handleOverlay)
		r.Post("/overlay/plan", h.handlePlan)
		r.Post("/overlay/commit", h.handleCommit)

		r.Get("/patches", h.handlePatches)
		r.Post("/patches/revert", h.handleRevert)

		r.Post("/hittest", h.handleHitTest)
	})
}

func writeJson(w http.ResponseWriter, v any) {
	writeJsonStatus(w, http.StatusOK, v)
}

func writeJsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	message := http.StatusText(code)

	if err != nil {
		message = err.Error()
	}

	writeJsonStatus(w, code, Error{
		Code:    errorCode(code),
		Message: message,
	})
}
