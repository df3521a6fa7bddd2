package report

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/project"
	"github.com/constructeye/constructeye/internal/rollup"
)

var (
	contingencyFactor = decimal.NewFromFloat(1.1)
	approvalFactor    = decimal.NewFromFloat(1.2)
	monthsPerYear     = decimal.NewFromInt(12)
	hundred           = decimal.NewFromInt(100)
)

// recentUpdateLimit caps the timeline section of the general report.
const recentUpdateLimit = 5

var statusLabels = map[project.ServiceStatus]string{
	project.StatusNotStarted: "Not started",
	project.StatusInProgress: "In progress",
	project.StatusDone:       "Done",
	project.StatusLate:       "Late",
	project.StatusPaused:     "Paused",
}

func statusLabel(s project.ServiceStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Composer turns a project snapshot into the section sequence for one report
// kind. All values are formatted here so the renderer stays dumb.
type Composer struct {
	format *metric.Formatter
	logger *slog.Logger
}

// NewComposer wires a composer with the given locale formatter.
func NewComposer(format *metric.Formatter, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{format: format, logger: logger}
}

// Compose builds the document for the requested kind. Per-record problems
// (missing dates, zero denominators) never fail the whole document; they are
// counted on RowsSkipped and GuardTrips instead.
func (c *Composer) Compose(kind Kind, snap project.Snapshot, now time.Time) (Document, error) {
	b := &composition{
		doc: Document{
			Kind:        kind,
			ProjectID:   snap.Project.ID,
			ProjectName: snap.Project.Name,
			GeneratedAt: now,
		},
		logger: c.logger.With("project_id", snap.Project.ID, "kind", string(kind)),
	}
	switch kind {
	case KindGeneral:
		c.composeGeneral(b, snap, now)
	case KindFinancial:
		c.composeFinancial(b, snap, now)
	case KindTeams:
		c.composeTeams(b, snap)
	case KindSchedule:
		c.composeSchedule(b, snap, now)
	case KindApproval:
		c.composeApproval(b, snap, now)
	default:
		return Document{}, ErrUnknownKind
	}
	return b.doc, nil
}

// composition accumulates sections plus the skip/guard counters for one
// document build.
type composition struct {
	doc    Document
	logger *slog.Logger
}

func (b *composition) add(s Section) {
	b.doc.Sections = append(b.doc.Sections, s)
}

func (b *composition) skip(n int) {
	b.doc.RowsSkipped += n
}

// trip records a tripped computation guard. The document still renders; the
// affected cell carries a placeholder instead of a value.
func (b *composition) trip(formula string, args ...any) {
	b.doc.GuardTrips++
	b.logger.Warn("computation guard tripped", append([]any{"formula", formula}, args...)...)
}

func (c *Composer) headerSection(snap project.Snapshot, now time.Time) Section {
	p := snap.Project
	return Section{
		Title: "PROJECT IDENTIFICATION",
		Kind:  SectionText,
		Rows: [][]string{
			{"Project", p.Name},
			{"Code", fmt.Sprintf("#%d", p.ID)},
			{"Location", p.Location},
			{"Manager", p.Manager},
			{"Report date", c.format.DateTime(now)},
		},
	}
}

func signatureSection(kind Kind, manager string) Section {
	rows := [][]string{{manager, "Project Manager"}}
	switch kind {
	case KindGeneral:
		rows = append(rows, []string{"", "Technical Lead"})
	case KindFinancial, KindApproval:
		rows = append(rows, []string{"", "Financial Director"})
	}
	return Section{Title: "SIGNATURES", Kind: SectionSignature, Rows: rows}
}

// tableOrNoData emits the section with an explicit placeholder row when the
// source collection was empty. Mandatory tables are never omitted.
func tableOrNoData(title string, header []string, rows [][]string) Section {
	if len(rows) == 0 {
		rows = [][]string{{noData}}
	}
	return Section{Title: title, Kind: SectionTable, Header: header, Rows: rows}
}

func (c *Composer) budgetStatusLabel(exceeded bool) string {
	if exceeded {
		return "BUDGET EXCEEDED"
	}
	return "WITHIN BUDGET"
}

// percentUsedCell formats budget consumption, guarding the zero-budget case.
func (c *Composer) percentUsedCell(b *composition, roll rollup.ProjectRollup) string {
	if !roll.TotalBudget.IsPositive() {
		b.trip("percent_used", "reason", "non-positive budget")
		return undetermined
	}
	return c.format.Percent(roll.PercentUsed)
}

func (c *Composer) composeGeneral(b *composition, snap project.Snapshot, now time.Time) {
	b.doc.Title = "GENERAL PROJECT REPORT"
	roll := rollup.Project(snap.Project.Budget, snap.Services)

	b.add(c.headerSection(snap, now))

	overview := [][]string{
		{"Status", snap.Project.Status},
		{"Overall progress", c.format.Percent(roll.ProgressByCompletion)},
		{"Services", c.format.Number(float64(roll.TotalServices))},
		{"Completed services", c.format.Number(float64(roll.CompletedServices))},
		{"Start date", c.format.DatePtr(snap.Project.StartDate)},
		{"Planned end", c.format.DatePtr(snap.Project.EndDate)},
	}
	if snap.Project.EndDate != nil {
		days := metric.DaysRemaining(snap.Project.EndDate, now)
		if metric.IsOverdue(snap.Project.EndDate, now) {
			overview = append(overview, []string{"Schedule", fmt.Sprintf("Overdue by %d days", -days)})
		} else {
			overview = append(overview, []string{"Schedule", fmt.Sprintf("%d days remaining", days)})
		}
	}
	b.add(Section{Title: "PROJECT OVERVIEW", Kind: SectionText, Rows: overview})

	b.add(Section{
		Title: "FINANCIAL SUMMARY",
		Kind:  SectionText,
		Rows: [][]string{
			{"Total budget", c.format.Currency(roll.TotalBudget)},
			{"Total spent", c.format.Currency(roll.TotalSpent)},
			{"Variance", c.format.Currency(roll.Variance)},
			{"Budget used", c.percentUsedCell(b, roll)},
			{"Status", c.budgetStatusLabel(roll.Exceeded)},
		},
	})

	serviceRows := make([][]string, 0, len(snap.Services))
	for _, svc := range snap.Services {
		team := snap.TeamName(svc.TeamID)
		if team == "" {
			team = "Unassigned"
		}
		serviceRows = append(serviceRows, []string{
			svc.Name,
			svc.Category.Label(),
			team,
			statusLabel(svc.Status),
			c.format.Percent(svc.Progress),
			c.format.Currency(svc.Budget),
		})
	}
	b.add(tableOrNoData("TEAMS AND SERVICES",
		[]string{"Service", "Category", "Team", "Status", "Progress", "Budget"},
		serviceRows))

	scheduleRows := make([][]string, 0, len(snap.Services))
	for _, svc := range snap.Services {
		remaining := ""
		if svc.EndDate != nil {
			remaining = c.format.Number(float64(metric.DaysRemaining(svc.EndDate, now)))
		}
		scheduleRows = append(scheduleRows, []string{
			svc.Name,
			c.format.DatePtr(svc.StartDate),
			c.format.DatePtr(svc.EndDate),
			remaining,
			statusLabel(svc.Status),
		})
	}
	b.add(tableOrNoData("SCHEDULE",
		[]string{"Service", "Start", "End", "Days remaining", "Status"},
		scheduleRows))

	// Materials and updates are supporting context; empty collections drop
	// the section instead of printing a placeholder.
	if len(snap.Materials) > 0 {
		rows := make([][]string, 0, len(snap.Materials))
		for _, m := range snap.Materials {
			rows = append(rows, []string{m.Name, c.format.Number(m.Quantity), m.Unit, string(m.Status)})
		}
		b.add(Section{
			Title:  "MATERIALS",
			Kind:   SectionTable,
			Header: []string{"Material", "Quantity", "Unit", "Status"},
			Rows:   rows,
		})
	}
	if len(snap.Updates) > 0 {
		updates := snap.Updates
		if len(updates) > recentUpdateLimit {
			updates = updates[:recentUpdateLimit]
		}
		rows := make([][]string, 0, len(updates))
		for _, u := range updates {
			rows = append(rows, []string{c.format.DateTime(u.At), string(u.Type), u.Text})
		}
		b.add(Section{
			Title:  "RECENT UPDATES",
			Kind:   SectionTable,
			Header: []string{"Date", "Type", "Update"},
			Rows:   rows,
		})
	}

	b.add(signatureSection(KindGeneral, snap.Project.Manager))
}

func (c *Composer) composeFinancial(b *composition, snap project.Snapshot, now time.Time) {
	b.doc.Title = "DETAILED FINANCIAL REPORT"
	roll := rollup.Project(snap.Project.Budget, snap.Services)
	spent := roll.TotalSpent

	b.add(c.headerSection(snap, now))

	forecast := spent.Mul(contingencyFactor)
	b.add(Section{
		Title: "EXECUTIVE FINANCIAL SUMMARY",
		Kind:  SectionText,
		Rows: [][]string{
			{"Total budget", c.format.Currency(roll.TotalBudget)},
			{"Total spent", c.format.Currency(spent)},
			{"Variance", c.format.Currency(roll.Variance)},
			{"Budget used", c.percentUsedCell(b, roll)},
			{"Forecast at completion (10% contingency)", c.format.Currency(forecast)},
			{"Status", c.budgetStatusLabel(roll.Exceeded)},
		},
	})

	projectNames := map[int64]string{snap.Project.ID: snap.Project.Name}
	categoryRows := make([][]string, 0)
	for _, cat := range rollup.ByCategory(snap.Services, projectNames) {
		categoryRows = append(categoryRows, []string{
			cat.Label,
			c.format.Number(float64(cat.Count)),
			c.format.Currency(cat.TotalSpend),
			c.format.Percent(cat.PercentOfTotal),
		})
	}
	b.add(tableOrNoData("SPEND BY CATEGORY",
		[]string{"Category", "Services", "Spend", "% of total"},
		categoryRows))

	b.add(c.cashFlowSection(b, snap, roll))

	teamRows := make([][]string, 0)
	for _, team := range rollup.TeamsBySpend(rollup.ByTeam(snap.Services, snap.Teams)) {
		teamRows = append(teamRows, []string{
			team.TeamName,
			c.format.Number(float64(team.TotalServices)),
			c.format.Currency(team.TotalSpend),
			c.format.Percent(team.AverageProgress),
		})
	}
	b.add(tableOrNoData("SPEND BY TEAM",
		[]string{"Team", "Services", "Spend", "Avg. progress"},
		teamRows))

	b.add(c.costIndicatorSection(b, snap, roll, now))

	if roll.Exceeded {
		b.add(Section{
			Title: "RECOMMENDATIONS",
			Kind:  SectionText,
			Rows: [][]string{
				{"Review the scope of in-progress services and renegotiate supplier contracts where possible."},
				{"Freeze non-essential purchases until the spend curve returns under the monthly budget line."},
				{"Reassess the remaining service budgets against actual unit costs observed to date."},
				{"Escalate a formal budget revision if the projected variance is confirmed next cycle."},
			},
		})
	}

	b.add(signatureSection(KindFinancial, snap.Project.Manager))
}

// cashFlowSection buckets payments by calendar month in first-seen order and
// compares each month's outflow to the flat monthly budget share.
func (c *Composer) cashFlowSection(b *composition, snap project.Snapshot, roll rollup.ProjectRollup) Section {
	type bucket struct {
		label string
		count int
		total decimal.Decimal
	}
	index := make(map[string]int)
	buckets := make([]bucket, 0)
	for _, p := range snap.Payments {
		if p.Date == nil {
			b.skip(1)
			continue
		}
		label := p.Date.Format("01/2006")
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, bucket{label: label, total: decimal.Zero})
		}
		buckets[i].count++
		buckets[i].total = buckets[i].total.Add(p.Amount)
	}

	hasMonthlyBudget := roll.TotalBudget.IsPositive()
	var monthlyBudget decimal.Decimal
	if hasMonthlyBudget {
		monthlyBudget = roll.TotalBudget.Div(monthsPerYear)
	} else if len(buckets) > 0 {
		b.trip("monthly_budget", "reason", "non-positive budget")
	}

	rows := make([][]string, 0, len(buckets))
	for _, bk := range buckets {
		variation := undetermined
		if hasMonthlyBudget {
			variation = c.format.Currency(bk.total.Sub(monthlyBudget))
		}
		rows = append(rows, []string{
			bk.label,
			c.format.Number(float64(bk.count)),
			c.format.Currency(bk.total),
			variation,
		})
	}
	return tableOrNoData("MONTHLY CASH FLOW",
		[]string{"Month", "Payments", "Outflow", "Vs. monthly budget"},
		rows)
}

// costIndicatorSection derives the run-rate indicators. Each indicator guards
// its own denominator; one undetermined cell never blanks the others.
func (c *Composer) costIndicatorSection(b *composition, snap project.Snapshot, roll rollup.ProjectRollup, now time.Time) Section {
	spent := roll.TotalSpent
	progress := roll.ProgressByAverage

	costPerDay := undetermined
	if snap.Project.StartDate == nil {
		b.trip("cost_per_day", "reason", "missing start date")
	} else {
		days := metric.DaysElapsed(snap.Project.StartDate, now)
		if days < 1 {
			days = 1
		}
		costPerDay = c.format.Currency(spent.Div(decimal.NewFromInt(int64(days))))
	}

	projection := "UNDETERMINED"
	projectedVariance := "UNDETERMINED"
	if progress <= 0 {
		b.trip("projected_total", "reason", "zero progress")
	} else {
		projected := spent.Mul(hundred).Div(decimal.NewFromFloat(progress))
		projection = c.format.Currency(projected)
		projectedVariance = c.format.Currency(projected.Sub(roll.TotalBudget))
	}

	cpi := undetermined
	if !spent.IsPositive() {
		b.trip("cost_performance_index", "reason", "zero spend")
	} else {
		earned := roll.TotalBudget.InexactFloat64() * (progress / 100)
		cpi = c.format.Number(earned / spent.InexactFloat64())
	}

	return Section{
		Title: "COST INDICATORS",
		Kind:  SectionText,
		Rows: [][]string{
			{"Average cost per day", costPerDay},
			{"Projected total at completion", projection},
			{"Projected variance", projectedVariance},
			{"Cost performance index", cpi},
		},
	}
}

func (c *Composer) composeTeams(b *composition, snap project.Snapshot) {
	b.doc.Title = "TEAM PERFORMANCE REPORT"
	b.add(c.headerSection(snap, b.doc.GeneratedAt))

	unassigned := 0
	for _, svc := range snap.Services {
		if svc.TeamID == nil {
			unassigned++
			continue
		}
		if _, ok := snap.Teams[*svc.TeamID]; !ok {
			unassigned++
		}
	}
	members := 0
	for _, t := range snap.Teams {
		members += t.MemberCount
	}
	b.add(Section{
		Title: "WORKFORCE",
		Kind:  SectionText,
		Rows: [][]string{
			{"Teams engaged", c.format.Number(float64(len(snap.Teams)))},
			{"Total members", c.format.Number(float64(members))},
			{"Unassigned services", c.format.Number(float64(unassigned))},
		},
	})

	rows := make([][]string, 0)
	for _, team := range rollup.TeamsBySpend(rollup.ByTeam(snap.Services, snap.Teams)) {
		rows = append(rows, []string{
			team.TeamName,
			team.Representative,
			c.format.Number(float64(team.TotalServices)),
			c.format.Number(float64(team.Completed)),
			c.format.Number(float64(team.Active)),
			c.format.Percent(team.AverageProgress),
			c.format.Currency(team.TotalSpend),
		})
	}
	b.add(tableOrNoData("TEAM SUMMARY",
		[]string{"Team", "Representative", "Services", "Completed", "Active", "Avg. progress", "Spend"},
		rows))

	b.add(signatureSection(KindTeams, snap.Project.Manager))
}

func (c *Composer) composeSchedule(b *composition, snap project.Snapshot, now time.Time) {
	b.doc.Title = "SCHEDULE REPORT"
	b.add(c.headerSection(snap, now))

	deadline := "Not set"
	remaining := ""
	schedule := "ON TRACK"
	if snap.Project.EndDate != nil {
		deadline = c.format.Date(*snap.Project.EndDate)
		remaining = c.format.Number(float64(metric.DaysRemaining(snap.Project.EndDate, now)))
		if metric.IsOverdue(snap.Project.EndDate, now) {
			schedule = "LATE"
		}
	}
	b.add(Section{
		Title: "PROJECT DEADLINES",
		Kind:  SectionText,
		Rows: [][]string{
			{"Start date", c.format.DatePtr(snap.Project.StartDate)},
			{"Planned end", deadline},
			{"Days remaining", remaining},
			{"Schedule status", schedule},
		},
	})

	rows := make([][]string, 0, len(snap.Services))
	for _, svc := range snap.Services {
		remaining := ""
		if svc.EndDate != nil {
			remaining = c.format.Number(float64(metric.DaysRemaining(svc.EndDate, now)))
		}
		rows = append(rows, []string{
			svc.Name,
			statusLabel(svc.Status),
			c.format.Percent(svc.Progress),
			c.format.DatePtr(svc.StartDate),
			c.format.DatePtr(svc.EndDate),
			remaining,
		})
	}
	b.add(tableOrNoData("SERVICE SCHEDULE",
		[]string{"Service", "Status", "Progress", "Start", "End", "Days remaining"},
		rows))

	b.add(signatureSection(KindSchedule, snap.Project.Manager))
}

func (c *Composer) composeApproval(b *composition, snap project.Snapshot, now time.Time) {
	b.doc.Title = "BUDGET APPROVAL REQUEST"
	roll := rollup.Project(snap.Project.Budget, snap.Services)
	spent := roll.TotalSpent

	b.add(c.headerSection(snap, now))

	newBudget := spent.Mul(approvalFactor)
	increase := undetermined
	if roll.TotalBudget.IsPositive() {
		pct := newBudget.Sub(roll.TotalBudget).Div(roll.TotalBudget).InexactFloat64() * 100
		increase = c.format.Percent(pct)
	} else {
		b.trip("budget_increase_percent", "reason", "non-positive budget")
	}
	b.add(Section{
		Title: "EXECUTIVE SUMMARY",
		Kind:  SectionText,
		Rows: [][]string{
			{"Current approved budget", c.format.Currency(roll.TotalBudget)},
			{"Spent to date", c.format.Currency(spent)},
			{"Current variance", c.format.Currency(roll.Variance)},
			{"Proposed new budget (20% reserve)", c.format.Currency(newBudget)},
			{"Requested increase", increase},
		},
	})

	b.add(Section{
		Title: "JUSTIFICATION",
		Kind:  SectionText,
		Rows: [][]string{
			{"Accumulated spend across contracted services has reached the level detailed above."},
			{"The proposed budget covers the committed services plus a 20% execution reserve."},
			{"The reserve absorbs price adjustments and scope corrections already identified on site."},
			{"Approval keeps the current teams mobilised without interruption of ongoing services."},
		},
	})

	projectNames := map[int64]string{snap.Project.ID: snap.Project.Name}
	rows := make([][]string, 0)
	for _, cat := range rollup.ByCategory(snap.Services, projectNames) {
		rows = append(rows, []string{
			cat.Label,
			c.format.Number(float64(cat.Count)),
			c.format.Currency(cat.TotalSpend),
		})
	}
	b.add(tableOrNoData("COST DETAIL",
		[]string{"Category", "Services", "Spend"},
		rows))

	b.add(signatureSection(KindApproval, snap.Project.Manager))
}
