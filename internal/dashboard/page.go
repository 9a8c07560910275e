package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/tombee/delineate-monitor/internal/jobs"
	"github.com/tombee/delineate-monitor/internal/metrics"
)

// refreshInterval matches the health poll cadence.
const refreshInterval = 5 * time.Second

//go:embed templates/index.html
var templateFS embed.FS

type pageData struct {
	Version   string
	Backend   string
	Health    HealthState
	Jobs      []jobs.Job
	Metrics   metrics.Snapshot
	ViewerURL string
	Refresh   int
}

type page struct {
	tmpl *template.Template
}

func newPage() (*page, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"ms": func(v float64) string { return fmt.Sprintf("%.1f ms", v) },
		"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"when": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Local().Format("15:04:05")
		},
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &page{tmpl: tmpl}, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (p *page) render(w io.Writer, data pageData) error {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
