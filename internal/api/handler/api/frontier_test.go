package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/frontier/internal/api/job"
	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/core"
)

type fakeSimulator struct {
	mu  sync.Mutex
	got []app.Request
	err error
}

func (f *fakeSimulator) RunFrontier(ctx context.Context, req app.Request) (*app.Run, error) {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &app.Run{ID: "run-1", Location: "runs/2024/02/run-1"}, nil
}

func (f *fakeSimulator) requests() []app.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]app.Request(nil), f.got...)
}

func testDefaults() app.Request {
	return app.Request{
		Symbols:        []string{"AAA", "BBB"},
		From:           time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		To:             time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		ReturnKind:     core.ReturnSimple,
		Trials:         1000,
		PeriodsPerYear: 252,
		RiskFreeRate:   0.03,
		Sampler:        "uniform",
	}
}

func postFrontier(h *FrontierHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/frontier", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)
	return w
}

func getFrontier(h *FrontierHandler, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/frontier/"+id, nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.Get(w, req)
	return w
}

func TestFrontierHandler_CreateAndGet(t *testing.T) {
	sim := &fakeSimulator{}
	runner := newTestRunner()
	h := NewFrontierHandler(runner, sim, testDefaults())

	w := postFrontier(h, `{"symbols":["AAA","BBB","CCC"],"trials":500,"seed":7,"from":"2020-01-01"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	data := decodeData(t, w)
	id, _ := data["job_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, string(job.StatusPending), data["status"])

	waitDone(t, runner, id)

	w = getFrontier(h, id)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, string(job.StatusComplete), data["status"])
	result, ok := data["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", result["id"])

	reqs := sim.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, reqs[0].Symbols)
	assert.Equal(t, 500, reqs[0].Trials)
	assert.Equal(t, uint64(7), reqs[0].Seed)
	assert.Equal(t, 252, reqs[0].PeriodsPerYear)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), reqs[0].From)
	assert.Equal(t, testDefaults().To, reqs[0].To)
}

func TestFrontierHandler_EmptyBodyUsesDefaults(t *testing.T) {
	sim := &fakeSimulator{}
	runner := newTestRunner()
	h := NewFrontierHandler(runner, sim, testDefaults())

	w := postFrontier(h, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	waitDone(t, runner, decodeData(t, w)["job_id"].(string))

	reqs := sim.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testDefaults(), reqs[0])
}

func TestFrontierHandler_CreateRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"symbols":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown field", `{"portfolio":"x"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad date", `{"from":"01/02/2020"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"reversed range", `{"from":"2023-01-01","to":"2020-01-01"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"zero trials", `{"trials":0}`, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"too many trials", `{"trials":5000000}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad periods", `{"periods_per_year":-1}`, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"bad sampler", `{"sampler":"sobol"}`, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"bad return kind", `{"return_kind":"geometric"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"negative workers", `{"workers":-2}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"too many workers", `{"workers":1000000,"trials":1000000}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"one symbol", `{"symbols":["AAA","AAA"]}`, http.StatusUnprocessableEntity, "INSUFFICIENT_ASSETS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := &fakeSimulator{}
			h := NewFrontierHandler(newTestRunner(), sim, testDefaults())

			w := postFrontier(h, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeError(t, w).Code)
			assert.Empty(t, sim.requests())
		})
	}
}

func TestFrontierHandler_JobFailure(t *testing.T) {
	sim := &fakeSimulator{err: core.Errorf(core.ErrInsufficientHistory, "AAA and BBB share 1 rows")}
	runner := newTestRunner()
	h := NewFrontierHandler(runner, sim, testDefaults())

	w := postFrontier(h, `{}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeData(t, w)["job_id"].(string)
	waitDone(t, runner, id)

	w = getFrontier(h, id)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, string(job.StatusFailed), data["status"])
	assert.Nil(t, data["result"])
	errInfo, ok := data["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_HISTORY", errInfo["code"])
}

func TestFrontierHandler_GetNotFound(t *testing.T) {
	runner := newTestRunner()
	h := NewFrontierHandler(runner, &fakeSimulator{}, testDefaults())

	w := getFrontier(h, "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, w).Code)

	other := runner.Start(JobFetch, func(context.Context) (any, error) { return nil, nil })
	waitDone(t, runner, other.ID)

	w = getFrontier(h, other.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
