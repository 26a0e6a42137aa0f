package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualis/internal/catalog"
	dErrors "qualis/pkg/domain-errors"
	"qualis/pkg/platform/httputil"
)

// Handler serves the embedded standards reference data.
type Handler struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Handler {
	return &Handler{catalog: c}
}

// Register mounts the standards endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/standards", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{standardID}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.catalog.Standards())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	standard, ok := h.catalog.StandardByID(chi.URLParam(r, "standardID"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "standard not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standard)
}
