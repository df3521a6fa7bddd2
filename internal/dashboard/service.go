package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/project"
	"github.com/constructeye/constructeye/internal/rollup"
)

// Repository exposes the project reads the dashboard derives its views from.
type Repository interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
	ListServices(ctx context.Context) ([]project.Service, error)
	ListTeams(ctx context.Context) (map[int64]project.Team, error)
	LoadSnapshot(ctx context.Context, projectID int64) (project.Snapshot, error)
}

// ProjectCard is the per-project summary shown on the portfolio board.
type ProjectCard struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Status        string          `json:"status"`
	Progress      float64         `json:"progress"`
	Budget        decimal.Decimal `json:"budget"`
	Spent         decimal.Decimal `json:"spent"`
	Exceeded      bool            `json:"exceeded"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
	Overdue       bool            `json:"overdue"`
	DaysRemaining int             `json:"daysRemaining"`
}

// Overview is the cached portfolio board payload.
type Overview struct {
	GeneratedAt        time.Time                     `json:"generatedAt"`
	TotalProjects      int                           `json:"totalProjects"`
	TotalServices      int                           `json:"totalServices"`
	TotalBudget        decimal.Decimal               `json:"totalBudget"`
	TotalSpent         decimal.Decimal               `json:"totalSpent"`
	StatusCounts       map[project.ServiceStatus]int `json:"statusCounts"`
	ProjectStatuses    map[string]int                `json:"projectStatuses"`
	OverallProgress    float64                       `json:"overallProgress"`
	Projects           []ProjectCard                 `json:"projects"`
	Months             rollup.MonthSeries            `json:"months"`
	MonthsSkipped      int                           `json:"monthsSkipped"`
	Categories         []rollup.CategoryRollup       `json:"categories"`
	Teams              []rollup.TeamRollup           `json:"teams"`
	OverdueProjects    []ProjectCard                 `json:"overdueProjects"`
	OverBudgetProjects []ProjectCard                 `json:"overBudgetProjects"`
}

// ProjectBoard is the cached per-project board payload.
type ProjectBoard struct {
	GeneratedAt   time.Time            `json:"generatedAt"`
	Card          ProjectCard          `json:"card"`
	Rollup        rollup.ProjectRollup `json:"rollup"`
	Teams         []rollup.TeamRollup  `json:"teams"`
	Months        rollup.MonthSeries   `json:"months"`
	MonthsSkipped int                  `json:"monthsSkipped"`
	Materials     []project.Material   `json:"materials"`
	Updates       []project.Update     `json:"updates"`
}

// Service coordinates dashboard computation with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	format *metric.Formatter
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper and locale formatter.
func NewService(repo Repository, cache *Cache, format *metric.Formatter) *Service {
	return &Service{repo: repo, cache: cache, format: format, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetOverview returns the portfolio board, from cache when warm.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	key, err := s.cache.BuildKey(ctx, keyOverview())
	if err != nil {
		return Overview{}, err
	}
	var out Overview
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.computeOverview(ctx)
	})
	return out, err
}

// GetProjectBoard returns one project's board, from cache when warm.
func (s *Service) GetProjectBoard(ctx context.Context, projectID int64) (ProjectBoard, error) {
	key, err := s.cache.BuildKey(ctx, keyProjectBoard(projectID))
	if err != nil {
		return ProjectBoard{}, err
	}
	var out ProjectBoard
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.computeProjectBoard(ctx, projectID)
	})
	return out, err
}

// Invalidate bumps the cache version after project data changes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) computeOverview(ctx context.Context) (Overview, error) {
	now := s.now()
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return Overview{}, err
	}
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return Overview{}, err
	}
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return Overview{}, err
	}

	byProject := make(map[int64][]project.Service)
	for _, svc := range services {
		byProject[svc.ProjectID] = append(byProject[svc.ProjectID], svc)
	}
	projectNames := make(map[int64]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	out := Overview{
		GeneratedAt:     now,
		TotalProjects:   len(projects),
		TotalServices:   len(services),
		TotalBudget:     decimal.Zero,
		TotalSpent:      decimal.Zero,
		StatusCounts:    make(map[project.ServiceStatus]int),
		ProjectStatuses: make(map[string]int),
		Projects:        make([]ProjectCard, 0, len(projects)),
	}
	for _, svc := range services {
		out.StatusCounts[svc.Status]++
	}
	for _, p := range projects {
		out.ProjectStatuses[p.Status]++
		card := s.buildCard(p, byProject[p.ID], now)
		out.TotalBudget = out.TotalBudget.Add(card.Budget)
		out.TotalSpent = out.TotalSpent.Add(card.Spent)
		out.Projects = append(out.Projects, card)
		if card.Overdue {
			out.OverdueProjects = append(out.OverdueProjects, card)
		}
		if card.Exceeded {
			out.OverBudgetProjects = append(out.OverBudgetProjects, card)
		}
	}
	out.OverallProgress = rollup.ProgressByCompletion(services)
	out.Months, out.MonthsSkipped = rollup.ByMonth(services, s.format.MonthShort)
	out.Categories = rollup.ByCategory(services, projectNames)
	out.Teams = rollup.TeamsBySpend(rollup.ByTeam(services, teams))
	return out, nil
}

func (s *Service) computeProjectBoard(ctx context.Context, projectID int64) (ProjectBoard, error) {
	now := s.now()
	snap, err := s.repo.LoadSnapshot(ctx, projectID)
	if err != nil {
		return ProjectBoard{}, err
	}
	months, skipped := rollup.ByMonth(snap.Services, s.format.MonthShort)
	return ProjectBoard{
		GeneratedAt:   now,
		Card:          s.buildCard(snap.Project, snap.Services, now),
		Rollup:        rollup.Project(snap.Project.Budget, snap.Services),
		Teams:         rollup.TeamsBySpend(rollup.ByTeam(snap.Services, snap.Teams)),
		Months:        months,
		MonthsSkipped: skipped,
		Materials:     snap.Materials,
		Updates:       snap.Updates,
	}, nil
}

// buildCard derives the portfolio summary for one project. Card progress uses
// the completed-services share so the portfolio view matches the reports.
func (s *Service) buildCard(p project.Project, services []project.Service, now time.Time) ProjectCard {
	roll := rollup.Project(p.Budget, services)
	return ProjectCard{
		ID:            p.ID,
		Name:          p.Name,
		Status:        p.Status,
		Progress:      roll.ProgressByCompletion,
		Budget:        roll.TotalBudget,
		Spent:         roll.TotalSpent,
		Exceeded:      roll.Exceeded,
		EndDate:       p.EndDate,
		Overdue:       metric.IsOverdue(p.EndDate, now),
		DaysRemaining: metric.DaysRemaining(p.EndDate, now),
	}
}
