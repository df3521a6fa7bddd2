// Package reporthttp exposes the report generation API.
package reporthttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/constructeye/constructeye/internal/platform/httpx"
	"github.com/constructeye/constructeye/internal/project"
	"github.com/constructeye/constructeye/internal/report"
	"github.com/constructeye/constructeye/jobs"
)

// Handler wires HTTP endpoints for requesting and fetching reports.
type Handler struct {
	logger   *slog.Logger
	service  *report.Service
	jobs     *jobs.Client
	validate *validator.Validate
}

// NewHandler constructs a Handler value.
func NewHandler(logger *slog.Logger, service *report.Service, jobsClient *jobs.Client) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, jobs: jobsClient, validate: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/projects/{projectID}/reports", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
	})
	r.Route("/reports/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Get("/download", h.download)
	})
}

type createBody struct {
	Kind string `json:"kind"`
}

// create accepts a generation request. The default path queues the work and
// answers 202 with the log entry; ?sync=true composes and streams the PDF in
// the same request.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	projectID := parseInt64(chi.URLParam(r, "projectID"))
	var body createBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	req := report.GenerateRequest{ProjectID: projectID, Kind: strings.TrimSpace(strings.ToLower(body.Kind))}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if isTrue(r.URL.Query().Get("sync")) {
		kind, err := report.ParseKind(req.Kind)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		pdf, doc, err := h.service.Generate(r.Context(), req.ProjectID, kind)
		if err != nil {
			h.respondError(w, "generate report", err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(doc)))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		_, _ = w.Write(pdf)
		return
	}

	rec, err := h.service.Request(r.Context(), req)
	if err != nil {
		h.respondError(w, "request report", err)
		return
	}
	if h.jobs != nil {
		if _, err := h.jobs.EnqueueReportGenerate(r.Context(), jobs.ReportGeneratePayload{ReportID: rec.ID.String()}); err != nil {
			h.logger.Error("enqueue report", slog.String("report_id", rec.ID.String()), slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "report could not be queued")
			return
		}
	}
	httpx.JSON(w, http.StatusAccepted, rec)
}

// list returns a project's generation log, newest first.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projectID := parseInt64(chi.URLParam(r, "projectID"))
	limit := int(parseInt64(r.URL.Query().Get("limit")))
	offset := int(parseInt64(r.URL.Query().Get("offset")))
	docs, err := h.service.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		h.respondError(w, "list reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reports": docs})
}

// get returns one log entry.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "report id must be a UUID")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

// download streams the stored PDF for a ready report.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "report id must be a UUID")
		return
	}
	rec, pdf, err := h.service.ReadArtefact(r.Context(), id)
	if err != nil {
		h.respondError(w, "download report", err)
		return
	}
	name := fmt.Sprintf("%s-report-%d.pdf", rec.Kind, rec.ProjectID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
	case errors.Is(err, report.ErrReportNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "report not found")
	case errors.Is(err, report.ErrUnknownKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func fileName(doc report.Document) string {
	return fmt.Sprintf("%s-report-%d.pdf", doc.Kind, doc.ProjectID)
}

func parseInt64(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
