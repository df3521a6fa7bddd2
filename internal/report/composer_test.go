package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/project"
)

var testNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func testComposer(t *testing.T) *Composer {
	t.Helper()
	return NewComposer(metric.MustFormatter("pt-BR", "BRL"), nil)
}

func datePtr(t time.Time) *time.Time { return &t }

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func findSection(t *testing.T, doc Document, title string) Section {
	t.Helper()
	for _, s := range doc.Sections {
		if s.Title == title {
			return s
		}
	}
	t.Fatalf("section %q not found, got %v", title, sectionTitles(doc))
	return Section{}
}

func hasSection(doc Document, title string) bool {
	for _, s := range doc.Sections {
		if s.Title == title {
			return true
		}
	}
	return false
}

func sectionTitles(doc Document) []string {
	titles := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}

func cellFor(t *testing.T, s Section, label string) string {
	t.Helper()
	for _, row := range s.Rows {
		if len(row) >= 2 && row[0] == label {
			return row[1]
		}
	}
	t.Fatalf("row %q not found in section %q", label, s.Title)
	return ""
}

func baseSnapshot() project.Snapshot {
	return project.Snapshot{
		Project: project.Project{
			ID:       7,
			Name:     "Residencial Aurora",
			Location: "São Paulo",
			Manager:  "Ana Lima",
			Budget:   money(10000),
		},
	}
}

func TestComposeApprovalProposesBudgetWithReserve(t *testing.T) {
	snap := baseSnapshot()
	snap.Services = []project.Service{
		{ID: 1, Name: "Foundations", Category: project.CategoryCivil, Status: project.StatusDone, Budget: money(5000), Progress: 100},
		{ID: 2, Name: "Wiring", Category: project.CategoryElectrical, Status: project.StatusInProgress, Budget: money(7000), Progress: 40},
	}

	doc, err := testComposer(t).Compose(KindApproval, snap, testNow)
	require.NoError(t, err)

	assert.Equal(t, "BUDGET APPROVAL REQUEST", doc.Title)
	summary := findSection(t, doc, "EXECUTIVE SUMMARY")
	assert.Equal(t, "R$ 14.400,00", cellFor(t, summary, "Proposed new budget (20% reserve)"))
	assert.Equal(t, "44,0%", cellFor(t, summary, "Requested increase"))
	assert.Zero(t, doc.GuardTrips)

	sig := findSection(t, doc, "SIGNATURES")
	require.Len(t, sig.Rows, 2)
	assert.Equal(t, "Financial Director", sig.Rows[1][1])
}

func TestComposeApprovalZeroBudgetGuardsIncrease(t *testing.T) {
	snap := baseSnapshot()
	snap.Project.Budget = decimal.Zero
	snap.Services = []project.Service{
		{ID: 1, Name: "Demolition", Category: project.CategoryDemolition, Status: project.StatusDone, Budget: money(3000), Progress: 100},
	}

	doc, err := testComposer(t).Compose(KindApproval, snap, testNow)
	require.NoError(t, err)

	summary := findSection(t, doc, "EXECUTIVE SUMMARY")
	assert.Equal(t, "N/A", cellFor(t, summary, "Requested increase"))
	assert.Equal(t, 1, doc.GuardTrips)
}

func TestComposeGeneralEmptyProject(t *testing.T) {
	doc, err := testComposer(t).Compose(KindGeneral, baseSnapshot(), testNow)
	require.NoError(t, err)

	services := findSection(t, doc, "TEAMS AND SERVICES")
	require.Len(t, services.Rows, 1)
	assert.Equal(t, []string{"No data available"}, services.Rows[0])

	assert.False(t, hasSection(doc, "MATERIALS"), "empty materials must drop the section")
	assert.False(t, hasSection(doc, "RECENT UPDATES"), "empty timeline must drop the section")

	sig := findSection(t, doc, "SIGNATURES")
	require.Len(t, sig.Rows, 2)
	assert.Equal(t, "Technical Lead", sig.Rows[1][1])
}

func TestComposeGeneralLimitsRecentUpdates(t *testing.T) {
	snap := baseSnapshot()
	for i := 0; i < 8; i++ {
		snap.Updates = append(snap.Updates, project.Update{
			ID:   int64(i + 1),
			At:   testNow.Add(-time.Duration(i) * time.Hour),
			Type: project.UpdateInfo,
			Text: "update",
		})
	}

	doc, err := testComposer(t).Compose(KindGeneral, snap, testNow)
	require.NoError(t, err)

	updates := findSection(t, doc, "RECENT UPDATES")
	assert.Len(t, updates.Rows, 5)
	// Snapshot order is newest first; the section keeps it.
	assert.Equal(t, "15/06/2024 10:00", updates.Rows[0][0])
}

func TestComposeFinancialRecommendationsOnlyWhenExceeded(t *testing.T) {
	snap := baseSnapshot()
	snap.Project.StartDate = datePtr(testNow.AddDate(0, 0, -10))
	snap.Services = []project.Service{
		{ID: 1, Name: "Painting", Category: project.CategoryPainting, Status: project.StatusInProgress, Budget: money(4000), Progress: 50},
	}

	c := testComposer(t)

	within, err := c.Compose(KindFinancial, snap, testNow)
	require.NoError(t, err)
	assert.False(t, hasSection(within, "RECOMMENDATIONS"))

	snap.Services = append(snap.Services, project.Service{
		ID: 2, Name: "Flooring", Category: project.CategoryFlooring, Status: project.StatusInProgress, Budget: money(8000), Progress: 20,
	})
	exceeded, err := c.Compose(KindFinancial, snap, testNow)
	require.NoError(t, err)
	assert.True(t, hasSection(exceeded, "RECOMMENDATIONS"))
}

func TestComposeFinancialCostIndicators(t *testing.T) {
	snap := baseSnapshot()
	snap.Project.StartDate = datePtr(testNow.AddDate(0, 0, -10))
	snap.Services = []project.Service{
		{ID: 1, Name: "Masonry", Category: project.CategoryMasonry, Status: project.StatusInProgress, Budget: money(5000), Progress: 50},
	}

	doc, err := testComposer(t).Compose(KindFinancial, snap, testNow)
	require.NoError(t, err)

	ind := findSection(t, doc, "COST INDICATORS")
	assert.Equal(t, "R$ 500,00", cellFor(t, ind, "Average cost per day"))
	assert.Equal(t, "R$ 10.000,00", cellFor(t, ind, "Projected total at completion"))
	assert.Equal(t, "R$ 0,00", cellFor(t, ind, "Projected variance"))
	assert.Equal(t, "1", cellFor(t, ind, "Cost performance index"))
	assert.Zero(t, doc.GuardTrips)
}

func TestComposeFinancialGuardsZeroProgress(t *testing.T) {
	snap := baseSnapshot()
	snap.Project.StartDate = datePtr(testNow.AddDate(0, 0, -3))
	snap.Services = []project.Service{
		{ID: 1, Name: "Glazing", Category: project.CategoryGlazing, Status: project.StatusNotStarted, Budget: money(2000), Progress: 0},
	}

	doc, err := testComposer(t).Compose(KindFinancial, snap, testNow)
	require.NoError(t, err)

	ind := findSection(t, doc, "COST INDICATORS")
	assert.Equal(t, "UNDETERMINED", cellFor(t, ind, "Projected total at completion"))
	assert.Equal(t, "UNDETERMINED", cellFor(t, ind, "Projected variance"))
	assert.Equal(t, 1, doc.GuardTrips)
}

func TestComposeFinancialCashFlowBucketsAndSkips(t *testing.T) {
	snap := baseSnapshot()
	snap.Payments = []project.Payment{
		{ID: 1, Date: datePtr(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)), Amount: money(1000)},
		{ID: 2, Date: datePtr(time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)), Amount: money(500)},
		{ID: 3, Date: datePtr(time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC)), Amount: money(250)},
		{ID: 4, Date: nil, Amount: money(9999)},
	}

	doc, err := testComposer(t).Compose(KindFinancial, snap, testNow)
	require.NoError(t, err)

	flow := findSection(t, doc, "MONTHLY CASH FLOW")
	require.Len(t, flow.Rows, 2)
	assert.Equal(t, "03/2024", flow.Rows[0][0])
	assert.Equal(t, "R$ 1.250,00", flow.Rows[0][2])
	assert.Equal(t, "01/2024", flow.Rows[1][0])
	assert.Equal(t, 1, doc.RowsSkipped)
}

func TestComposeScheduleFlagsLateProject(t *testing.T) {
	snap := baseSnapshot()
	snap.Project.EndDate = datePtr(testNow.AddDate(0, 0, -4))

	doc, err := testComposer(t).Compose(KindSchedule, snap, testNow)
	require.NoError(t, err)

	deadlines := findSection(t, doc, "PROJECT DEADLINES")
	assert.Equal(t, "LATE", cellFor(t, deadlines, "Schedule status"))
	assert.Equal(t, "-4", cellFor(t, deadlines, "Days remaining"))

	sig := findSection(t, doc, "SIGNATURES")
	assert.Len(t, sig.Rows, 1)
}

func TestComposeTeamsCountsUnassigned(t *testing.T) {
	teamID := int64(1)
	dangling := int64(99)
	snap := baseSnapshot()
	snap.Teams = map[int64]project.Team{
		1: {ID: 1, Name: "Alpha", Representative: "Bruno", MemberCount: 6},
	}
	snap.Services = []project.Service{
		{ID: 1, Name: "Masonry", Category: project.CategoryMasonry, TeamID: &teamID, Status: project.StatusInProgress, Budget: money(3000), Progress: 30},
		{ID: 2, Name: "Painting", Category: project.CategoryPainting, TeamID: nil, Status: project.StatusNotStarted, Budget: money(1000)},
		{ID: 3, Name: "Gardening", Category: project.CategoryGardening, TeamID: &dangling, Status: project.StatusNotStarted, Budget: money(500)},
	}

	doc, err := testComposer(t).Compose(KindTeams, snap, testNow)
	require.NoError(t, err)

	workforce := findSection(t, doc, "WORKFORCE")
	assert.Equal(t, "2", cellFor(t, workforce, "Unassigned services"))

	summary := findSection(t, doc, "TEAM SUMMARY")
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "Alpha", summary.Rows[0][0])
}

func TestComposeUnknownKind(t *testing.T) {
	_, err := testComposer(t).Compose(Kind("weekly"), baseSnapshot(), testNow)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
