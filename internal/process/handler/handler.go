package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualis/internal/process/models"
	"qualis/internal/process/service"
	"qualis/pkg/domain"
	"qualis/pkg/platform/httputil"
)

// Handler wires process endpoints to the process service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs a process handler.
func New(s *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// Register mounts process endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/processes", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{processID}", h.handleGet)
		r.Patch("/{processID}", h.handleUpdate)
		r.Post("/{processID}/archive", h.handleArchive)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[service.CreateInput](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "process created", "process_id", p.ID, "code", p.Code)
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		procs []*models.Process
		err   error
	)
	if r.URL.Query().Get("status") == string(models.StatusActive) {
		procs, err = h.service.Active(r.Context())
	} else {
		procs, err = h.service.List(r.Context())
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, procs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := domain.ProcessID(chi.URLParam(r, "processID"))
	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// UpdateRequest carries a partial patch plus an optional revision note.
type UpdateRequest struct {
	service.UpdatePatch
	RevisionNote string `json:"revisionNote"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[UpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	id := domain.ProcessID(chi.URLParam(r, "processID"))
	p, err := h.service.Update(r.Context(), id, req.UpdatePatch, req.RevisionNote)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := domain.ProcessID(chi.URLParam(r, "processID"))
	p, err := h.service.Archive(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "process archived", "process_id", p.ID)
	httputil.WriteJSON(w, http.StatusOK, p)
}
