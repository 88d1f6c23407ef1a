package api

import (
	"context"
	"net/http"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/app"
)

// JobFrontier is the job type of simulations.
const JobFrontier = "frontier"

// FrontierRunner runs frontier simulations.
type FrontierRunner interface {
	RunFrontier(ctx context.Context, req app.Request) (*app.Run, error)
}

// FrontierHandler handles simulation API requests.
type FrontierHandler struct {
	runner   *Runner
	sim      FrontierRunner
	defaults app.Request
}

// NewFrontierHandler creates a new frontier handler.
func NewFrontierHandler(runner *Runner, sim FrontierRunner, defaults app.Request) *FrontierHandler {
	return &FrontierHandler{runner: runner, sim: sim, defaults: defaults}
}

// Create validates the request and starts a simulation job.
func (h *FrontierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body FrontierBody
	if err := decode(r.Body, &body); err != nil {
		response.Fail(w, err)
		return
	}
	req, err := body.Request(h.defaults)
	if err != nil {
		response.Fail(w, err)
		return
	}

	j := h.runner.Start(JobFrontier, func(ctx context.Context) (any, error) {
		return h.sim.RunFrontier(ctx, req)
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// Get returns the status of a simulation job.
func (h *FrontierHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJob(w, h.runner, r.PathValue("id"), JobFrontier)
}
