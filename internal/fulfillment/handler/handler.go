package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualis/internal/fulfillment"
	"qualis/pkg/domain"
	"qualis/pkg/platform/httputil"
)

// Handler exposes the derived fulfillment views under the process routes.
type Handler struct {
	engine *fulfillment.Engine
	logger *slog.Logger
}

func New(engine *fulfillment.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts fulfillment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/processes/{processID}/fulfillment", h.handleForProcess)
	r.Get("/processes/{processID}/requirements-overview", h.handleOverview)
}

func (h *Handler) handleForProcess(w http.ResponseWriter, r *http.Request) {
	processID := domain.ProcessID(chi.URLParam(r, "processID"))
	fulfillments, err := h.engine.ForProcess(r.Context(), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fulfillments)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	processID := domain.ProcessID(chi.URLParam(r, "processID"))
	overview, err := h.engine.OverviewFor(r.Context(), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, overview)
}
