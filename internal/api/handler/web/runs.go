// internal/api/handler/web/runs.go
package web

import (
	"encoding/json"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/report"
	"github.com/newthinker/frontier/internal/storage/archive"
)

// RunsData holds data for the monthly run listing.
type RunsData struct {
	Title    string
	Year     int
	Month    int
	Prev     time.Time
	Next     time.Time
	Disabled bool
	Runs     []string
}

// RunData holds data for one run page.
type RunData struct {
	Title      string
	ID         string
	Year       int
	Month      int
	Files      []string
	Images     []string
	Summary    *report.Summary
	SML        *app.SMLRun
	Indicators *app.IndicatorRun
}

// Runs lists the runs archived in one month, the current one by default.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1970 || n > 9999 {
			h.fail(w, core.Errorf(core.ErrInvalidRequest, "invalid year %q", v))
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			h.fail(w, core.Errorf(core.ErrInvalidRequest, "invalid month %q", v))
			return
		}
		month = n
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	data := RunsData{
		Title: first.Format("January 2006") + " runs",
		Year:  year,
		Month: month,
		Prev:  first.AddDate(0, -1, 0),
		Next:  first.AddDate(0, 1, 0),
	}
	if h.archive == nil {
		data.Disabled = true
		h.render(w, http.StatusOK, "runs.html", data)
		return
	}

	ids, err := h.archive.List(r.Context(), year, time.Month(month))
	if err != nil {
		h.fail(w, core.WrapError(core.ErrStorageFailed, err))
		return
	}
	// newest first
	for i := len(ids) - 1; i >= 0; i-- {
		data.Runs = append(data.Runs, ids[i])
	}
	h.render(w, http.StatusOK, "runs.html", data)
}

// Run renders the archived summaries of one run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, createdAt, err := h.runPath(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	files, err := h.archive.Files(r.Context(), id, createdAt)
	if err != nil {
		h.fail(w, core.WrapError(core.ErrStorageFailed, err))
		return
	}
	if len(files) == 0 {
		h.fail(w, core.Errorf(core.ErrNoData, "run %s not found", id))
		return
	}

	data := RunData{
		Title: "Run " + id,
		ID:    id,
		Year:  createdAt.Year(),
		Month: int(createdAt.Month()),
		Files: files,
	}
	for _, name := range files {
		switch {
		case path.Ext(name) == ".png":
			data.Images = append(data.Images, name)
		case name == archive.SummaryFile:
			data.Summary = new(report.Summary)
			h.decode(r, id, createdAt, name, data.Summary)
		case name == archive.SMLFile:
			data.SML = new(app.SMLRun)
			h.decode(r, id, createdAt, name, data.SML)
		case name == archive.IndicatorsFile:
			data.Indicators = new(app.IndicatorRun)
			h.decode(r, id, createdAt, name, data.Indicators)
		}
	}
	h.render(w, http.StatusOK, "run.html", data)
}

// File serves one raw artifact of a run.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	id, createdAt, err := h.runPath(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	name := r.PathValue("file")
	if !archive.ValidSegment(name) {
		h.fail(w, core.Errorf(core.ErrInvalidRequest, "invalid file name %q", name))
		return
	}

	body, err := h.archive.Load(r.Context(), id, createdAt, name)
	if err != nil {
		h.fail(w, core.Errorf(core.ErrNoData, "%s of run %s not found", name, id))
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(body)
}

// runPath validates the year, month and id path values.
func (h *Handler) runPath(r *http.Request) (string, time.Time, error) {
	if h.archive == nil {
		return "", time.Time{}, core.Errorf(core.ErrNoData, "run archive is disabled")
	}
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1970 || year > 9999 {
		return "", time.Time{}, core.Errorf(core.ErrInvalidRequest, "invalid year %q", r.PathValue("year"))
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		return "", time.Time{}, core.Errorf(core.ErrInvalidRequest, "invalid month %q", r.PathValue("month"))
	}
	id := r.PathValue("id")
	if !archive.ValidSegment(id) {
		return "", time.Time{}, core.Errorf(core.ErrInvalidRequest, "invalid run id %q", id)
	}
	return id, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// decode fills v from a JSON artifact. A broken artifact leaves v zeroed and
// is still listed as a file.
func (h *Handler) decode(r *http.Request, id string, createdAt time.Time, name string, v any) {
	body, err := h.archive.Load(r.Context(), id, createdAt, name)
	if err != nil {
		return
	}
	_ = json.Unmarshal(body, v)
}
