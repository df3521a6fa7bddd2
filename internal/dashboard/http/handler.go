// Package dashboardhttp exposes the dashboard read API.
package dashboardhttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/constructeye/constructeye/internal/dashboard"
	"github.com/constructeye/constructeye/internal/platform/httpx"
	"github.com/constructeye/constructeye/internal/project"
)

// Handler wires HTTP endpoints for the dashboard boards.
type Handler struct {
	logger  *slog.Logger
	service *dashboard.Service
}

// NewHandler constructs a Handler value.
func NewHandler(logger *slog.Logger, service *dashboard.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.overview)
	r.Post("/dashboard/invalidate", h.invalidate)
	r.Get("/projects/{projectID}/dashboard", h.projectBoard)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.logger.Error("dashboard overview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) projectBoard(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || projectID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "project id must be a positive integer")
		return
	}
	out, err := h.service.GetProjectBoard(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
			return
		}
		h.logger.Error("project dashboard", slog.Int64("project_id", projectID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// invalidate bumps the cache version. Callers use it after mutating project
// data through the upstream system.
func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logger.Error("dashboard invalidate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "invalidated"})
}
