// Package templates provides HTML template rendering for the site.
package templates

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/views"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// Engine is an HTML template rendering engine.
type Engine struct {
	templates map[string]*template.Template
}

// templateFuncs returns the common template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"plus": func(a, b int) int {
			return a + b
		},
		"minus": func(a, b int) int {
			return a - b
		},
		"join":  strings.Join,
		"money": views.FormatMoney,
		"date": func(v any) string {
			switch t := v.(type) {
			case time.Time:
				return views.FormatDate(t)
			case *time.Time:
				return views.FormatDatePtr(t)
			}
			return ""
		},
		"datetime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		// statusClass maps any workflow status to a badge modifier.
		"statusClass": func(s any) string {
			switch fmt.Sprint(s) {
			case string(workflow.ProposalAccepted), string(workflow.OfferSpeakerConfirmed), string(workflow.OfferCompleted):
				return "badge-success"
			case string(workflow.ProposalRejected), string(workflow.OfferSpeakerDeclined):
				return "badge-danger"
			case string(workflow.ProposalViewed), string(workflow.OfferSpeakerViewed):
				return "badge-info"
			case string(workflow.ProposalSent):
				return "badge-warning"
			}
			return "badge-muted"
		},
	}
}

// New creates a new template engine using the provided filesystem.
// It expects templates/base.html and page templates that define "content".
func New(fsys fs.FS) (*Engine, error) {
	engine := &Engine{
		templates: make(map[string]*template.Template),
	}

	baseContent, err := fs.ReadFile(fsys, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}

	entries, err := fs.ReadDir(fsys, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "base.html" || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".html")
		pageContent, err := fs.ReadFile(fsys, "templates/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}

		combined := string(baseContent) + "\n" + string(pageContent)
		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(combined)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
		}

		engine.templates[name] = tmpl
	}

	return engine, nil
}

// Render renders the named template with the given data.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return tmpl.Execute(w, data)
}

// Has reports whether a page template is loaded.
func (e *Engine) Has(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// PageData provides common data for page templates.
type PageData struct {
	Title     string
	ActiveNav string
	// Admin selects the back-office chrome.
	Admin bool
	User  *models.User
	Flash *Flash
	Data  any
}

// Flash represents a flash message to display.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}
