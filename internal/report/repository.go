package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/constructeye/constructeye/internal/project"
)

// Repository persists the report generation log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, project_id, kind, status, COALESCE(file_path,''), file_size,
rows_skipped, guard_trips, COALESCE(error_message,''), requested_at, generated_at`

// Insert stores a new pending generation request. A dangling project reference
// surfaces as project.ErrNotFound via the foreign key.
func (r *Repository) Insert(ctx context.Context, projectID int64, kind Kind) (ReportDocument, error) {
	if r == nil || r.pool == nil {
		return ReportDocument{}, fmt.Errorf("report: repository not initialised")
	}
	id := uuid.New()
	const insert = `INSERT INTO report_documents (id, project_id, kind, status, requested_at)
VALUES ($1, $2, $3, 'PENDING', NOW())`
	if _, err := r.pool.Exec(ctx, insert, id, projectID, string(kind)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ReportDocument{}, project.ErrNotFound
		}
		return ReportDocument{}, err
	}
	return r.Get(ctx, id)
}

// Get fetches one log entry.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (ReportDocument, error) {
	if r == nil || r.pool == nil {
		return ReportDocument{}, fmt.Errorf("report: repository not initialised")
	}
	query := `SELECT ` + documentColumns + ` FROM report_documents WHERE id = $1`
	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReportDocument{}, ErrReportNotFound
		}
		return ReportDocument{}, err
	}
	return doc, nil
}

// ListByProject returns the generation log for one project, newest first.
func (r *Repository) ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]ReportDocument, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("report: repository not initialised")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + documentColumns + `
FROM report_documents
WHERE project_id = $1
ORDER BY requested_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []ReportDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkInProgress transitions a pending request to in-progress.
func (r *Repository) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("report: repository not initialised")
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE report_documents
SET status = 'IN_PROGRESS', error_message = NULL
WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// MarkReady stores the artefact metadata and marks the request ready.
func (r *Repository) MarkReady(ctx context.Context, id uuid.UUID, result GenerateResult) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("report: repository not initialised")
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE report_documents
SET status = 'READY', file_path = $2, file_size = $3, rows_skipped = $4, guard_trips = $5, generated_at = $6
WHERE id = $1`, id, result.FilePath, result.FileSize, result.RowsSkipped, result.GuardTrips, result.GeneratedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

// MarkFailed captures the error message and switches the status to failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("report: repository not initialised")
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE report_documents
SET status = 'FAILED', error_message = $2
WHERE id = $1`, id, truncateError(msg))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func scanDocument(row interface{ Scan(dest ...any) error }) (ReportDocument, error) {
	var doc ReportDocument
	var kind, status string
	var fileSize sql.NullInt64
	var generatedAt sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&kind,
		&status,
		&doc.FilePath,
		&fileSize,
		&doc.RowsSkipped,
		&doc.GuardTrips,
		&doc.ErrorMessage,
		&doc.RequestedAt,
		&generatedAt,
	); err != nil {
		return ReportDocument{}, err
	}
	doc.Kind = Kind(kind)
	doc.Status = NormaliseStatus(status)
	if fileSize.Valid {
		v := fileSize.Int64
		doc.FileSize = &v
	}
	if generatedAt.Valid {
		t := generatedAt.Time
		doc.GeneratedAt = &t
	}
	return doc, nil
}

func truncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
