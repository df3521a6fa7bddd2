// Package projecthttp exposes read endpoints for projects and their records.
package projecthttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/constructeye/constructeye/internal/platform/httpx"
	"github.com/constructeye/constructeye/internal/project"
)

// Handler wires HTTP endpoints for project reads.
type Handler struct {
	logger *slog.Logger
	repo   *project.Repository
}

// NewHandler constructs a Handler value.
func NewHandler(logger *slog.Logger, repo *project.Repository) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/projects", h.list)
	r.Get("/projects/{projectID}", h.detail)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repo.ListProjects(r.Context())
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// detail returns the full snapshot: the project plus its services, teams,
// materials, payments, and recent updates.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "project id must be a positive integer")
		return
	}
	snap, err := h.repo.LoadSnapshot(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
			return
		}
		h.logger.Error("load project snapshot", slog.Int64("project_id", projectID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}
