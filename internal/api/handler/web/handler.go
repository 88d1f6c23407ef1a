// internal/api/handler/web/handler.go
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/newthinker/frontier/internal/api/response"
)

//go:embed templates/*
var templateFS embed.FS

var pages = []string{"runs.html", "run.html", "error.html"}

// RunArchive lists and loads archived run artifacts.
type RunArchive interface {
	List(ctx context.Context, year int, month time.Month) ([]string, error)
	Files(ctx context.Context, id string, createdAt time.Time) ([]string, error)
	Load(ctx context.Context, id string, createdAt time.Time, name string) ([]byte, error)
}

// Handler renders the run archive as HTML pages.
type Handler struct {
	// pageTemplates holds layout.html plus one page each
	pageTemplates map[string]*template.Template
	archive       RunArchive
	now           func() time.Time
}

var funcs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
	"num": func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"opt": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"month": func(m int) string { return time.Month(m).String() },
}

// NewHandler parses the embedded templates. A nil archive renders every page
// as "archive disabled".
func NewHandler(archive RunArchive) (*Handler, error) {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("accessing embedded templates: %w", err)
	}
	return NewHandlerWithFS(subFS, archive)
}

// NewHandlerWithFS parses templates from fsys.
func NewHandlerWithFS(fsys fs.FS, archive RunArchive) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}
	return &Handler{pageTemplates: pageTemplates, archive: archive, now: time.Now}, nil
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ErrorData holds data for the error page.
type ErrorData struct {
	Title   string
	Code    string
	Message string
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	d := response.Detail(err)
	h.render(w, response.StatusFor(err), "error.html", ErrorData{Title: "Error", Code: d.Code, Message: d.Message})
}
