package objective

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualis/pkg/domain"
	"qualis/pkg/platform/httputil"
)

// Handler wires objective and KPI endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// Register mounts objective and KPI endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/objectives", func(r chi.Router) {
		r.Post("/", h.handleCreateObjective)
		r.Get("/", h.handleListObjectives)
		r.Get("/{objectiveID}", h.handleGetObjective)
		r.Patch("/{objectiveID}", h.handleUpdateObjective)
		r.Get("/{objectiveID}/kpis", h.handleKPIsByObjective)
	})
	r.Route("/kpis", func(r chi.Router) {
		r.Post("/", h.handleCreateKPI)
		r.Get("/", h.handleListKPIs)
		r.Get("/{kpiID}", h.handleGetKPI)
		r.Patch("/{kpiID}", h.handleUpdateKPI)
	})
}

func (h *Handler) handleCreateObjective(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[ObjectiveInput](w, r, h.logger)
	if !ok {
		return
	}
	o, err := h.service.CreateObjective(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) handleListObjectives(w http.ResponseWriter, r *http.Request) {
	objectives, err := h.service.ListObjectives(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, objectives)
}

func (h *Handler) handleGetObjective(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetObjective(r.Context(), domain.ObjectiveID(chi.URLParam(r, "objectiveID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

// ObjectiveUpdateRequest carries a partial patch plus an optional revision note.
type ObjectiveUpdateRequest struct {
	ObjectivePatch
	RevisionNote string `json:"revisionNote"`
}

func (h *Handler) handleUpdateObjective(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[ObjectiveUpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	o, err := h.service.UpdateObjective(r.Context(), domain.ObjectiveID(chi.URLParam(r, "objectiveID")), req.ObjectivePatch, req.RevisionNote)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) handleKPIsByObjective(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.service.KPIsByObjective(r.Context(), domain.ObjectiveID(chi.URLParam(r, "objectiveID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, kpis)
}

func (h *Handler) handleCreateKPI(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[KPIInput](w, r, h.logger)
	if !ok {
		return
	}
	k, err := h.service.CreateKPI(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "kpi created", "kpi_id", k.ID, "code", k.Code)
	httputil.WriteJSON(w, http.StatusCreated, k)
}

func (h *Handler) handleListKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.service.ListKPIs(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, kpis)
}

func (h *Handler) handleGetKPI(w http.ResponseWriter, r *http.Request) {
	k, err := h.service.GetKPI(r.Context(), domain.KPIID(chi.URLParam(r, "kpiID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, k)
}

// KPIUpdateRequest carries a partial patch plus an optional revision note.
type KPIUpdateRequest struct {
	KPIPatch
	RevisionNote string `json:"revisionNote"`
}

func (h *Handler) handleUpdateKPI(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[KPIUpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	k, err := h.service.UpdateKPI(r.Context(), domain.KPIID(chi.URLParam(r, "kpiID")), req.KPIPatch, req.RevisionNote)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, k)
}
