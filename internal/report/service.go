package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/constructeye/constructeye/internal/project"
)

// SnapshotLoader supplies the full project read batch a composition needs.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, projectID int64) (project.Snapshot, error)
}

// Renderer converts a composed document into a PDF artefact.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Store persists the generation log.
type Store interface {
	Insert(ctx context.Context, projectID int64, kind Kind) (ReportDocument, error)
	Get(ctx context.Context, id uuid.UUID) (ReportDocument, error)
	ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]ReportDocument, error)
	MarkInProgress(ctx context.Context, id uuid.UUID) error
	MarkReady(ctx context.Context, id uuid.UUID, result GenerateResult) error
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

// GenerateResult carries the artefact metadata written on completion.
type GenerateResult struct {
	FilePath    string
	FileSize    int64
	RowsSkipped int
	GuardTrips  int
	GeneratedAt time.Time
}

// Service orchestrates report composition, rendering, and the generation log.
type Service struct {
	store      Store
	loader     SnapshotLoader
	composer   *Composer
	renderer   Renderer
	storageDir string
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceConfig wires the service collaborators.
type ServiceConfig struct {
	Store      Store
	Loader     SnapshotLoader
	Composer   *Composer
	Renderer   Renderer
	StorageDir string
	Logger     *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      cfg.Store,
		loader:     cfg.Loader,
		composer:   cfg.Composer,
		renderer:   cfg.Renderer,
		storageDir: cfg.StorageDir,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Generate composes and renders a report synchronously, without touching the
// generation log. Used for direct downloads.
func (s *Service) Generate(ctx context.Context, projectID int64, kind Kind) ([]byte, Document, error) {
	snap, err := s.loader.LoadSnapshot(ctx, projectID)
	if err != nil {
		return nil, Document{}, err
	}
	doc, err := s.composer.Compose(kind, snap, s.now())
	if err != nil {
		return nil, Document{}, err
	}
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, Document{}, fmt.Errorf("report: render: %w", err)
	}
	return pdf, doc, nil
}

// Request records a pending generation to be fulfilled by the worker.
func (s *Service) Request(ctx context.Context, req GenerateRequest) (ReportDocument, error) {
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return ReportDocument{}, err
	}
	if req.ProjectID <= 0 {
		return ReportDocument{}, project.ErrNotFound
	}
	return s.store.Insert(ctx, req.ProjectID, kind)
}

// Get loads a single log entry.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (ReportDocument, error) {
	return s.store.Get(ctx, id)
}

// ListByProject returns a project's generation log, newest first.
func (s *Service) ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]ReportDocument, error) {
	return s.store.ListByProject(ctx, projectID, limit, offset)
}

// Process fulfils one queued generation end to end. Failures after the
// in-progress transition are recorded on the log entry; the returned error
// still propagates so the queue can account for it.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == StatusReady {
		return nil
	}
	if err := s.store.MarkInProgress(ctx, id); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			current, loadErr := s.store.Get(ctx, id)
			if loadErr == nil && (current.Status == StatusInProgress || current.Status == StatusReady) {
				return nil
			}
		}
		return err
	}
	pdf, doc, err := s.Generate(ctx, rec.ProjectID, rec.Kind)
	if err != nil {
		_ = s.store.MarkFailed(ctx, id, err.Error())
		return err
	}
	path, err := s.save(rec.ID, pdf)
	if err != nil {
		_ = s.store.MarkFailed(ctx, id, err.Error())
		return err
	}
	result := GenerateResult{
		FilePath:    path,
		FileSize:    int64(len(pdf)),
		RowsSkipped: doc.RowsSkipped,
		GuardTrips:  doc.GuardTrips,
		GeneratedAt: s.now(),
	}
	if err := s.store.MarkReady(ctx, id, result); err != nil {
		return err
	}
	s.logger.Info("report ready",
		slog.String("report_id", id.String()),
		slog.Int64("project_id", rec.ProjectID),
		slog.String("kind", string(rec.Kind)),
		slog.String("file", path),
		slog.Int("rows_skipped", doc.RowsSkipped),
		slog.Int("guard_trips", doc.GuardTrips))
	return nil
}

// ReadArtefact loads the stored PDF for a ready report.
func (s *Service) ReadArtefact(ctx context.Context, id uuid.UUID) (ReportDocument, []byte, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return ReportDocument{}, nil, err
	}
	if rec.Status != StatusReady || rec.FilePath == "" {
		return ReportDocument{}, nil, ErrReportNotFound
	}
	pdf, err := os.ReadFile(rec.FilePath)
	if err != nil {
		return ReportDocument{}, nil, err
	}
	return rec, pdf, nil
}

func (s *Service) save(id uuid.UUID, pdf []byte) (string, error) {
	dir := s.storageDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "constructeye-reports")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("report-%s.pdf", id))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
