package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualis/internal/issue/service"
	"qualis/pkg/domain"
	"qualis/pkg/platform/httputil"
)

// Handler wires issue endpoints to the issue service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New constructs an issue handler.
func New(s *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

// Register mounts issue endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/issues", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{issueID}", h.handleGet)
		r.Patch("/{issueID}", h.handleUpdate)
		r.Post("/{issueID}/risk-versions", h.handleAddRiskVersion)
		r.Get("/{issueID}/risk-versions", h.handleRiskHistory)
		r.Get("/{issueID}/risk-versions/latest", h.handleLatestRiskVersion)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[service.CreateInput](w, r, h.logger)
	if !ok {
		return
	}
	issue, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "issue created", "issue_id", issue.ID, "code", issue.Code)
	httputil.WriteJSON(w, http.StatusCreated, issue)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if processID := r.URL.Query().Get("processId"); processID != "" {
		issues, err := h.service.ByProcess(r.Context(), domain.ProcessID(processID))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, issues)
		return
	}
	issues, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issues)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	issue, err := h.service.GetByID(r.Context(), domain.IssueID(chi.URLParam(r, "issueID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issue)
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
	issue, err := h.service.Update(r.Context(), domain.IssueID(chi.URLParam(r, "issueID")), req.UpdatePatch, req.RevisionNote)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issue)
}

func (h *Handler) handleAddRiskVersion(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[service.RiskVersionInput](w, r, h.logger)
	if !ok {
		return
	}
	issue, err := h.service.AddRiskVersion(r.Context(), domain.IssueID(chi.URLParam(r, "issueID")), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "risk version added",
		"issue_id", issue.ID, "versions", len(issue.RiskVersions))
	httputil.WriteJSON(w, http.StatusCreated, issue)
}

func (h *Handler) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetRiskHistory(r.Context(), domain.IssueID(chi.URLParam(r, "issueID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) handleLatestRiskVersion(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.GetLatestRiskVersion(r.Context(), domain.IssueID(chi.URLParam(r, "issueID")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, latest)
}
