package api

import (
	"net/http"

	"github.com/newthinker/frontier/internal/api/job"
	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/core"
)

// JobsHandler exposes every background job regardless of type.
type JobsHandler struct {
	runner *Runner
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(runner *Runner) *JobsHandler {
	return &JobsHandler{runner: runner}
}

// List returns live jobs, newest first, without their results.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobType := r.URL.Query().Get("type")
	jobs := h.runner.Jobs().List()

	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if jobType != "" && j.Type != jobType {
			continue
		}
		out = append(out, map[string]any{
			"job_id":     j.ID,
			"type":       j.Type,
			"status":     j.Status,
			"created_at": j.CreatedAt,
			"updated_at": j.UpdatedAt,
		})
	}
	response.JSON(w, http.StatusOK, out)
}

// Get returns one job of any type.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJob(w, h.runner, r.PathValue("id"), "")
}

// writeJob renders a job. A non-empty jobType hides jobs of other types.
func writeJob(w http.ResponseWriter, runner *Runner, id, jobType string) {
	j, err := runner.Jobs().Get(id)
	if err == nil && jobType != "" && j.Type != jobType {
		err = core.Errorf(core.ErrJobNotFound, "no %s job %s", jobType, id)
	}
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"type":     j.Type,
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = j.Error
	}

	response.JSON(w, http.StatusOK, resp)
}
