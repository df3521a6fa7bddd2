package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructeye/constructeye/internal/report"
)

type fakePDFClient struct {
	lastHTML string
}

func (f *fakePDFClient) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.lastHTML = html
	return []byte("%PDF-1.7 fake"), nil
}

func sampleDocument() report.Document {
	return report.Document{
		Kind:        report.KindGeneral,
		Title:       "GENERAL PROJECT REPORT",
		ProjectID:   7,
		ProjectName: "Residencial Aurora",
		GeneratedAt: time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC),
		Sections: []report.Section{
			{Title: "PROJECT OVERVIEW", Kind: report.SectionText, Rows: [][]string{{"Status", "IN_PROGRESS"}}},
			{
				Title:  "TEAMS AND SERVICES",
				Kind:   report.SectionTable,
				Header: []string{"Service", "Budget"},
				Rows:   [][]string{{"Foundations", "R$ 5.000,00"}},
			},
			{Title: "SIGNATURES", Kind: report.SectionSignature, Rows: [][]string{{"Ana Lima", "Project Manager"}}},
		},
	}
}

func TestRendererProducesHTMLForEverySectionKind(t *testing.T) {
	r, err := NewRenderer(&fakePDFClient{})
	require.NoError(t, err)

	html, err := r.HTML(sampleDocument())
	require.NoError(t, err)

	assert.True(t, strings.Contains(html, "GENERAL PROJECT REPORT"))
	assert.True(t, strings.Contains(html, "Residencial Aurora"))
	assert.True(t, strings.Contains(html, "<th>Service</th>"))
	assert.True(t, strings.Contains(html, "R$ 5.000,00"))
	assert.True(t, strings.Contains(html, "Project Manager"))
	assert.True(t, strings.Contains(html, "15/06/2024 10:00"))
}

func TestRendererSendsHTMLToPDFClient(t *testing.T) {
	client := &fakePDFClient{}
	r, err := NewRenderer(client)
	require.NoError(t, err)

	pdf, err := r.Render(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.True(t, strings.Contains(client.lastHTML, "TEAMS AND SERVICES"))
}
