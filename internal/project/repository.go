package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Repository provides read-only PostgreSQL access to project records. The
// analytics engine never writes base entities; ownership stays with the CRUD
// application.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, name, COALESCE(location,''), COALESCE(manager,''), COALESCE(budget,0),
start_date, end_date, COALESCE(status,''), COALESCE(risk_count,0), created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Location, &p.Manager, &p.Budget,
		&p.StartDate, &p.EndDate, &p.Status, &p.RiskCount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProject loads one project by id.
func (r *Repository) GetProject(ctx context.Context, id int64) (Project, error) {
	if r == nil || r.pool == nil {
		return Project{}, fmt.Errorf("project: repository not initialised")
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// ListProjects returns every project ordered by name.
func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

const serviceColumns = `id, project_id, team_id, name, COALESCE(category,'OTHER'), COALESCE(status,'NOT_STARTED'),
COALESCE(budget,0), COALESCE(progress,0), start_date, end_date, updated_at, COALESCE(notes,'')`

func scanService(row pgx.Row) (Service, error) {
	var (
		svc    Service
		status string
	)
	err := row.Scan(&svc.ID, &svc.ProjectID, &svc.TeamID, &svc.Name, &svc.Category, &status,
		&svc.Budget, &svc.Progress, &svc.StartDate, &svc.EndDate, &svc.UpdatedAt, &svc.Notes)
	if err != nil {
		return Service{}, err
	}
	svc.Status = NormaliseServiceStatus(status)
	return svc, nil
}

func (r *Repository) queryServices(ctx context.Context, query string, args ...any) ([]Service, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var services []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// ListServices returns services across all projects, in insertion order. The
// dashboard month chart depends on this ordering.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	return r.queryServices(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY id`)
}

// ListServicesByProject returns the services of one project in insertion order.
func (r *Repository) ListServicesByProject(ctx context.Context, projectID int64) ([]Service, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	return r.queryServices(ctx, `SELECT `+serviceColumns+` FROM services WHERE project_id = $1 ORDER BY id`, projectID)
}

// ListTeams returns all teams keyed by id.
func (r *Repository) ListTeams(ctx context.Context) (map[int64]Team, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	query := `SELECT id, name, COALESCE(representative,''), COALESCE(member_count,0) FROM teams ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	teams := make(map[int64]Team)
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Representative, &t.MemberCount); err != nil {
			return nil, err
		}
		teams[t.ID] = t
	}
	return teams, rows.Err()
}

// ListMaterialsByProject returns the materials tracked for one project.
func (r *Repository) ListMaterialsByProject(ctx context.Context, projectID int64) ([]Material, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	query := `SELECT id, project_id, name, COALESCE(quantity,0), COALESCE(unit,''), COALESCE(status,'OK')
FROM materials WHERE project_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var materials []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Quantity, &m.Unit, &m.Status); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// ListPaymentsByProject returns payments booked against one project, oldest first.
func (r *Repository) ListPaymentsByProject(ctx context.Context, projectID int64) ([]Payment, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	query := `SELECT id, project_id, paid_at, COALESCE(amount,0) FROM payments WHERE project_id = $1 ORDER BY paid_at NULLS LAST, id`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Date, &p.Amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListUpdatesByProject returns the newest updates first, capped at limit.
func (r *Repository) ListUpdatesByProject(ctx context.Context, projectID int64, limit int) ([]Update, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("project: repository not initialised")
	}
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, project_id, posted_at, COALESCE(type,'INFO'), COALESCE(body,'')
FROM updates WHERE project_id = $1 ORDER BY posted_at DESC, id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var updates []Update
	for rows.Next() {
		var u Update
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.At, &u.Type, &u.Text); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// LoadSnapshot fetches one project with all dependent records. Record
// collections are loaded concurrently; this is the single read batch issued
// per report or dashboard request.
func (r *Repository) LoadSnapshot(ctx context.Context, projectID int64) (Snapshot, error) {
	proj, err := r.GetProject(ctx, projectID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Project: proj}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		services, err := r.ListServicesByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load services: %w", err)
		}
		snap.Services = services
		return nil
	})
	g.Go(func() error {
		teams, err := r.ListTeams(gctx)
		if err != nil {
			return fmt.Errorf("load teams: %w", err)
		}
		snap.Teams = teams
		return nil
	})
	g.Go(func() error {
		materials, err := r.ListMaterialsByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load materials: %w", err)
		}
		snap.Materials = materials
		return nil
	})
	g.Go(func() error {
		payments, err := r.ListPaymentsByProject(gctx, projectID)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		snap.Payments = payments
		return nil
	})
	g.Go(func() error {
		updates, err := r.ListUpdatesByProject(gctx, projectID, 20)
		if err != nil {
			return fmt.Errorf("load updates: %w", err)
		}
		snap.Updates = updates
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
