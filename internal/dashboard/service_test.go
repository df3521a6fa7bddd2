package dashboard

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/project"
)

type mockRepo struct {
	projects      []project.Project
	services      []project.Service
	teams         map[int64]project.Team
	snapshots     map[int64]project.Snapshot
	listCalls     int
	snapshotCalls int
}

func (m *mockRepo) ListProjects(context.Context) ([]project.Project, error) {
	m.listCalls++
	return m.projects, nil
}

func (m *mockRepo) ListServices(context.Context) ([]project.Service, error) {
	return m.services, nil
}

func (m *mockRepo) ListTeams(context.Context) (map[int64]project.Team, error) {
	return m.teams, nil
}

func (m *mockRepo) LoadSnapshot(_ context.Context, projectID int64) (project.Snapshot, error) {
	m.snapshotCalls++
	snap, ok := m.snapshots[projectID]
	if !ok {
		return project.Snapshot{}, project.ErrNotFound
	}
	return snap, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, metric.MustFormatter("pt-BR", "BRL"))
	svc.WithNow(func() time.Time {
		return time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	})
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func datePtr(t time.Time) *time.Time { return &t }

func portfolioRepo() *mockRepo {
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &mockRepo{
		projects: []project.Project{
			{ID: 1, Name: "Aurora", Status: "IN_PROGRESS", Budget: money(10000)},
			{ID: 2, Name: "Horizonte", Status: "IN_PROGRESS", Budget: money(5000),
				EndDate: datePtr(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))},
		},
		services: []project.Service{
			{ID: 1, ProjectID: 1, Name: "Foundations", Category: project.CategoryCivil, Status: project.StatusDone, Budget: money(4000), Progress: 100, StartDate: datePtr(march)},
			{ID: 2, ProjectID: 1, Name: "Wiring", Category: project.CategoryElectrical, Status: project.StatusInProgress, Budget: money(3000), Progress: 40, StartDate: datePtr(march)},
			{ID: 3, ProjectID: 2, Name: "Painting", Category: project.CategoryPainting, Status: project.StatusInProgress, Budget: money(6000), Progress: 70},
		},
		teams: map[int64]project.Team{},
	}
}

func TestGetOverviewComputesPortfolio(t *testing.T) {
	repo := portfolioRepo()
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	out, err := svc.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TotalProjects != 2 {
		t.Fatalf("expected 2 projects, got %d", out.TotalProjects)
	}
	if !out.TotalSpent.Equal(money(13000)) {
		t.Fatalf("expected total spend 13000, got %s", out.TotalSpent)
	}
	if out.StatusCounts[project.StatusInProgress] != 2 {
		t.Fatalf("expected 2 in-progress services, got %d", out.StatusCounts[project.StatusInProgress])
	}
	if len(out.OverdueProjects) != 1 || out.OverdueProjects[0].ID != 2 {
		t.Fatalf("expected project 2 overdue, got %+v", out.OverdueProjects)
	}
	if len(out.OverBudgetProjects) != 1 || out.OverBudgetProjects[0].ID != 2 {
		t.Fatalf("expected project 2 over budget, got %+v", out.OverBudgetProjects)
	}
	// Services 1 and 2 started in March; service 3 has no start date.
	if len(out.Months) != 1 || out.Months[0].Label != "mar" || out.Months[0].Count != 2 {
		t.Fatalf("unexpected month series: %+v", out.Months)
	}
	if out.MonthsSkipped != 1 {
		t.Fatalf("expected 1 skipped service, got %d", out.MonthsSkipped)
	}
}

func TestGetOverviewCaches(t *testing.T) {
	repo := portfolioRepo()
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.GetOverview(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.listCalls)
	}

	// Second call should hit cache.
	if _, err := svc.GetOverview(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected cache hit, got %d repo calls", repo.listCalls)
	}
}

func TestInvalidateBumpsVersionAndRecomputes(t *testing.T) {
	repo := portfolioRepo()
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.GetOverview(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetOverview(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected recompute after bump, got %d repo calls", repo.listCalls)
	}
}

func TestGetProjectBoardNotFound(t *testing.T) {
	repo := &mockRepo{snapshots: map[int64]project.Snapshot{}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	if _, err := svc.GetProjectBoard(context.Background(), 42); err != project.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetProjectBoardRollsUpSnapshot(t *testing.T) {
	teamID := int64(1)
	repo := &mockRepo{
		snapshots: map[int64]project.Snapshot{
			1: {
				Project: project.Project{ID: 1, Name: "Aurora", Budget: money(8000)},
				Services: []project.Service{
					{ID: 1, ProjectID: 1, TeamID: &teamID, Name: "Masonry", Category: project.CategoryMasonry, Status: project.StatusDone, Budget: money(5000), Progress: 100},
				},
				Teams: map[int64]project.Team{1: {ID: 1, Name: "Alpha", Representative: "Bruno"}},
			},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	board, err := svc.GetProjectBoard(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.Rollup.CompletedServices != 1 {
		t.Fatalf("expected 1 completed service, got %d", board.Rollup.CompletedServices)
	}
	if len(board.Teams) != 1 || board.Teams[0].TeamName != "Alpha" {
		t.Fatalf("unexpected team rollup: %+v", board.Teams)
	}
	if board.Card.Progress != 100 {
		t.Fatalf("expected progress 100, got %.1f", board.Card.Progress)
	}
}
