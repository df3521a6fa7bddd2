// Package rollup derives the aggregate tables consumed by the dashboard and
// the report composer. Every rollup is recomputed from the current record
// snapshot on each call; nothing here carries identity or persistence.
package rollup

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/project"
)

// ProjectRollup summarises budget and progress for one project.
//
// ProgressByCompletion and ProgressByAverage are deliberately distinct
// metrics: the first is the share of completed services, the second the mean
// of the per-service progress field. Consumers pick one explicitly.
type ProjectRollup struct {
	TotalBudget          decimal.Decimal               `json:"totalBudget"`
	TotalSpent           decimal.Decimal               `json:"totalSpent"`
	Variance             decimal.Decimal               `json:"variance"`
	PercentUsed          float64                       `json:"percentUsed"`
	Exceeded             bool                          `json:"exceeded"`
	TotalServices        int                           `json:"totalServices"`
	CompletedServices    int                           `json:"completedServices"`
	ProgressByCompletion float64                       `json:"progressByCompletion"`
	ProgressByAverage    float64                       `json:"progressByAverage"`
	StatusCounts         map[project.ServiceStatus]int `json:"statusCounts"`
}

// TeamRollup summarises the services owned by one team.
type TeamRollup struct {
	TeamName        string          `json:"teamName"`
	Representative  string          `json:"representative"`
	TotalServices   int             `json:"totalServices"`
	Completed       int             `json:"completed"`
	Active          int             `json:"active"`
	AverageProgress float64         `json:"averageProgress"`
	TotalSpend      decimal.Decimal `json:"totalSpend"`
}

// CategoryRollup summarises spend within one trade category.
type CategoryRollup struct {
	Category       project.Category `json:"category"`
	Label          string           `json:"label"`
	TotalSpend     decimal.Decimal  `json:"totalSpend"`
	Count          int              `json:"count"`
	PercentOfTotal float64          `json:"percentOfTotal"`
	Projects       []string         `json:"projects"`
}

// MonthBucket counts services starting in one calendar month.
type MonthBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthSeries keeps buckets in first-seen order; the chart x-axis depends on
// insertion order, not calendar order.
type MonthSeries []MonthBucket

// ProgressByCompletion is the completed-services share as a percentage.
func ProgressByCompletion(services []project.Service) float64 {
	completed := 0
	for _, svc := range services {
		if svc.Status == project.StatusDone {
			completed++
		}
	}
	return metric.PercentComplete(len(services), completed)
}

// ProgressByAverage is the mean of the per-service progress field.
func ProgressByAverage(services []project.Service) float64 {
	if len(services) == 0 {
		return 0
	}
	sum := 0.0
	for _, svc := range services {
		sum += svc.Progress
	}
	return sum / float64(len(services))
}

// Project aggregates one project's services in a single pass. Status counts
// come from one grouping pass rather than a filter per status.
func Project(budget decimal.Decimal, services []project.Service) ProjectRollup {
	r := ProjectRollup{
		TotalBudget:  budget,
		TotalSpent:   decimal.Zero,
		StatusCounts: make(map[project.ServiceStatus]int),
	}
	progressSum := 0.0
	for _, svc := range services {
		r.TotalServices++
		r.TotalSpent = r.TotalSpent.Add(svc.Budget)
		r.StatusCounts[svc.Status]++
		progressSum += svc.Progress
		if svc.Status == project.StatusDone {
			r.CompletedServices++
		}
	}
	v := metric.BudgetVariance(budget, r.TotalSpent)
	r.Variance = v.Variance
	r.PercentUsed = v.PercentUsed
	r.Exceeded = v.Exceeded
	r.ProgressByCompletion = metric.PercentComplete(r.TotalServices, r.CompletedServices)
	if r.TotalServices > 0 {
		r.ProgressByAverage = progressSum / float64(r.TotalServices)
	}
	return r
}

// ByTeam groups services by team name. Services without a resolvable team
// assignment are excluded from the map entirely; there is no sentinel
// "unassigned" bucket.
func ByTeam(services []project.Service, teams map[int64]project.Team) map[string]TeamRollup {
	out := make(map[string]TeamRollup)
	progressSums := make(map[string]float64)
	for _, svc := range services {
		if svc.TeamID == nil {
			continue
		}
		team, ok := teams[*svc.TeamID]
		if !ok {
			continue
		}
		r, exists := out[team.Name]
		if !exists {
			r = TeamRollup{TeamName: team.Name, Representative: team.Representative, TotalSpend: decimal.Zero}
		}
		r.TotalServices++
		r.TotalSpend = r.TotalSpend.Add(svc.Budget)
		if svc.Status == project.StatusDone {
			r.Completed++
		}
		if svc.Status == project.StatusInProgress {
			r.Active++
		}
		progressSums[team.Name] += svc.Progress
		out[team.Name] = r
	}
	for name, r := range out {
		r.AverageProgress = progressSums[name] / float64(r.TotalServices)
		out[name] = r
	}
	return out
}

// TeamsBySpend flattens a team rollup map ordered by descending spend.
func TeamsBySpend(rollups map[string]TeamRollup) []TeamRollup {
	out := make([]TeamRollup, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSpend.Cmp(out[j].TotalSpend); c != 0 {
			return c > 0
		}
		return out[i].TeamName < out[j].TeamName
	})
	return out
}

// ByCategory accumulates spend per trade category, ordered by descending
// total. Contributing project names are a deduplicated set in first-seen
// order so a category shared by several services of one project counts that
// project once.
func ByCategory(services []project.Service, projectNames map[int64]string) []CategoryRollup {
	index := make(map[project.Category]int)
	seen := make(map[project.Category]map[string]struct{})
	out := make([]CategoryRollup, 0)
	grand := decimal.Zero

	for _, svc := range services {
		cat := svc.Category
		if cat == "" {
			cat = project.CategoryOther
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategoryRollup{Category: cat, Label: cat.Label(), TotalSpend: decimal.Zero})
			seen[cat] = make(map[string]struct{})
		}
		out[i].TotalSpend = out[i].TotalSpend.Add(svc.Budget)
		out[i].Count++
		grand = grand.Add(svc.Budget)

		if name, ok := projectNames[svc.ProjectID]; ok && name != "" {
			if _, dup := seen[cat][name]; !dup {
				seen[cat][name] = struct{}{}
				out[i].Projects = append(out[i].Projects, name)
			}
		}
	}

	if grand.IsPositive() {
		for i := range out {
			out[i].PercentOfTotal = out[i].TotalSpend.Div(grand).InexactFloat64() * 100
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSpend.Cmp(out[j].TotalSpend) > 0
	})
	return out
}

// ByMonth buckets services by the localized month label of their start date,
// preserving first-seen order. Services without a usable start date are
// skipped from this series only and reported in the second return value; they
// still count in status-based aggregates.
func ByMonth(services []project.Service, monthLabel func(time.Time) string) (MonthSeries, int) {
	index := make(map[string]int)
	series := make(MonthSeries, 0)
	skipped := 0
	for _, svc := range services {
		if svc.StartDate == nil {
			skipped++
			continue
		}
		label := monthLabel(*svc.StartDate)
		i, ok := index[label]
		if !ok {
			i = len(series)
			index[label] = i
			series = append(series, MonthBucket{Label: label})
		}
		series[i].Count++
	}
	return series, skipped
}
