package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/frontier/internal/storage/archive"
)

func newTestRuns(t *testing.T) *archive.Runs {
	t.Helper()
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	runs := archive.NewRuns(store)

	created := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	_, err = runs.Save(context.Background(), "run-1", created, map[string][]byte{
		archive.SummaryFile: []byte(`{"run_id":"run-1"}`),
		archive.TrialsFile:  []byte("return,volatility,sharpe\n"),
	})
	require.NoError(t, err)
	return runs
}

func TestRunsHandler_List(t *testing.T) {
	h := NewRunsHandler(newTestRuns(t))

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?year=2024&month=2", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, []any{"run-1"}, data["runs"])

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?year=2024&month=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decodeData(t, w)["runs"])
}

func TestRunsHandler_ListDefaultsToCurrentMonth(t *testing.T) {
	h := NewRunsHandler(newTestRuns(t))
	h.now = func() time.Time { return time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC) }

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(2024), data["year"])
	assert.Equal(t, []any{"run-1"}, data["runs"])
}

func TestRunsHandler_ListBadMonth(t *testing.T) {
	h := NewRunsHandler(newTestRuns(t))

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?month=13", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func fileRequest(year, month, id, file string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+year+"/"+month+"/"+id+"/"+file, nil)
	req.SetPathValue("year", year)
	req.SetPathValue("month", month)
	req.SetPathValue("id", id)
	req.SetPathValue("file", file)
	return req
}

func TestRunsHandler_File(t *testing.T) {
	h := NewRunsHandler(newTestRuns(t))

	w := httptest.NewRecorder()
	h.File(w, fileRequest("2024", "02", "run-1", archive.SummaryFile))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"run_id":"run-1"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.File(w, fileRequest("2024", "02", "run-1", "frontier.png"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.File(w, fileRequest("2024", "xx", "run-1", archive.SummaryFile))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsHandler_FileRejectsDotSegments(t *testing.T) {
	h := NewRunsHandler(newTestRuns(t))

	for _, tc := range []struct{ id, file string }{
		{"..", archive.SummaryFile},
		{"run-1", ".."},
		{"..", "03/run-1/summary.json"},
		{`run-1\..`, archive.SummaryFile},
	} {
		w := httptest.NewRecorder()
		h.File(w, fileRequest("2024", "02", tc.id, tc.file))
		assert.Equal(t, http.StatusBadRequest, w.Code, "id=%q file=%q", tc.id, tc.file)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
	}
}

func TestRunsHandler_NoArchive(t *testing.T) {
	h := NewRunsHandler(nil)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_DATA", decodeError(t, w).Code)
}
