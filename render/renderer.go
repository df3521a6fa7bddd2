package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/constructeye/constructeye/internal/report"
	"github.com/constructeye/constructeye/web"
)

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Renderer executes the report template and converts the HTML to PDF bytes.
// It implements report.Renderer.
type Renderer struct {
	tpl    *template.Template
	client PDFClient
}

// NewRenderer parses the embedded report template and wires the PDF client.
func NewRenderer(client PDFClient) (*Renderer, error) {
	if client == nil {
		return nil, fmt.Errorf("render: pdf client required")
	}
	tpl, err := template.New("document.html").ParseFS(web.Templates, "templates/reports/document.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client}, nil
}

// Render produces the PDF artefact for one composed document.
func (r *Renderer) Render(ctx context.Context, doc report.Document) ([]byte, error) {
	if r == nil || r.tpl == nil || r.client == nil {
		return nil, fmt.Errorf("render: renderer not initialised")
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, doc); err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, buf.String())
}

// HTML renders just the HTML body without the PDF conversion round trip.
func (r *Renderer) HTML(doc report.Document) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("render: renderer not initialised")
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
