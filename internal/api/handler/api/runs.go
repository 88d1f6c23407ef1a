package api

import (
	"context"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/storage/archive"
)

// RunArchive lists and loads archived run artifacts.
type RunArchive interface {
	List(ctx context.Context, year int, month time.Month) ([]string, error)
	Load(ctx context.Context, id string, createdAt time.Time, name string) ([]byte, error)
}

// RunsHandler browses the run archive.
type RunsHandler struct {
	archive RunArchive
	now     func() time.Time
}

// NewRunsHandler creates a runs handler. A nil archive answers every request
// with NO_DATA.
func NewRunsHandler(archive RunArchive) *RunsHandler {
	return &RunsHandler{archive: archive, now: time.Now}
}

// List returns the run ids of a month, given as ?year=2024&month=5. The
// current month is used when omitted.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		response.Fail(w, core.Errorf(core.ErrNoData, "run archive is disabled"))
		return
	}

	now := h.now().UTC()
	year, month := now.Year(), int(now.Month())
	var err error
	if v := r.URL.Query().Get("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			response.Fail(w, core.WrapError(core.ErrInvalidRequest, err))
			return
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			response.Fail(w, core.Errorf(core.ErrInvalidRequest, "month must be 1-12, got %q", v))
			return
		}
	}

	ids, err := h.archive.List(r.Context(), year, time.Month(month))
	if err != nil {
		response.Fail(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"runs":  ids,
	})
}

// File serves one artifact from /runs/{year}/{month}/{id}/{file}.
func (h *RunsHandler) File(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		response.Fail(w, core.Errorf(core.ErrNoData, "run archive is disabled"))
		return
	}

	year, errY := strconv.Atoi(r.PathValue("year"))
	month, errM := strconv.Atoi(r.PathValue("month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		response.Fail(w, core.Errorf(core.ErrInvalidRequest, "bad year or month"))
		return
	}
	id, name := r.PathValue("id"), r.PathValue("file")
	if !archive.ValidSegment(id) || !archive.ValidSegment(name) {
		response.Fail(w, core.Errorf(core.ErrInvalidRequest, "invalid run path"))
		return
	}
	createdAt := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

	data, err := h.archive.Load(r.Context(), id, createdAt, name)
	if err != nil {
		response.Fail(w, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
