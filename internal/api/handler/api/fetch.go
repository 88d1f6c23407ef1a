package api

import (
	"context"
	"net/http"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/app"
)

// JobFetch is the job type of warehouse loads.
const JobFetch = "fetch"

// Fetcher loads prices into the warehouse.
type Fetcher interface {
	Fetch(ctx context.Context, req app.FetchRequest) (*app.FetchReport, error)
}

// FetchHandler starts warehouse loads.
type FetchHandler struct {
	runner   *Runner
	fetcher  Fetcher
	defaults app.FetchRequest
}

// NewFetchHandler creates a new fetch handler. defaults fill whatever the
// request leaves out.
func NewFetchHandler(runner *Runner, fetcher Fetcher, defaults app.FetchRequest) *FetchHandler {
	return &FetchHandler{runner: runner, fetcher: fetcher, defaults: defaults}
}

// Create starts a fetch job.
func (h *FetchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body FetchBody
	if err := decode(r.Body, &body); err != nil {
		response.Fail(w, err)
		return
	}
	req, err := body.Request(h.defaults)
	if err != nil {
		response.Fail(w, err)
		return
	}

	j := h.runner.Start(JobFetch, func(ctx context.Context) (any, error) {
		return h.fetcher.Fetch(ctx, req)
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}
