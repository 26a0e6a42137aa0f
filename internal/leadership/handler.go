package leadership

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualis/pkg/domain"
	dErrors "qualis/pkg/domain-errors"
	"qualis/pkg/platform/httputil"
)

// Handler wires leadership endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// Register mounts leadership endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/leadership", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/quality-policy", h.handleGetPolicy)
		r.Put("/quality-policy", h.handleSetPolicy)
		r.Post("/reviews", h.handleAddReview)
		r.Get("/{recordID}", h.handleGet)
		r.Patch("/{recordID}", h.handleUpdate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kind := Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown leadership kind"))
		return
	}
	out, err := h.service.List(r.Context(), kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.QualityPolicy(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[PolicyInput](w, r, h.logger)
	if !ok {
		return
	}
	policy, err := h.service.SetQualityPolicy(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "quality policy set",
		"record_id", policy.ID, "version", policy.Version)
	httputil.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleAddReview(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[ReviewInput](w, r, h.logger)
	if !ok {
		return
	}
	review, err := h.service.AddReview(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetByID(r.Context(), domain.LeadershipID(chi.URLParam(r, "recordID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// UpdateRequest carries a partial patch plus an optional revision note.
type UpdateRequest struct {
	UpdatePatch
	RevisionNote string `json:"revisionNote"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[UpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	record, err := h.service.Update(r.Context(), domain.LeadershipID(chi.URLParam(r, "recordID")), req.UpdatePatch, req.RevisionNote)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}
