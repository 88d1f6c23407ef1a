package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/api/job"
	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/metrics"
)

// DefaultJobTimeout bounds a background job.
const DefaultJobTimeout = 10 * time.Minute

// Runner executes background jobs against the job store and keeps track of
// them so shutdown can wait.
type Runner struct {
	jobs    *job.Store
	metrics *metrics.Registry
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a job runner. reg may be nil.
func NewRunner(jobs *job.Store, reg *metrics.Registry, logger *zap.Logger, timeout time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &Runner{jobs: jobs, metrics: reg, logger: logger, timeout: timeout}
}

// Jobs returns the underlying store.
func (r *Runner) Jobs() *job.Store {
	return r.jobs
}

// Start registers a job of the given type and runs fn in the background.
func (r *Runner) Start(jobType string, fn func(ctx context.Context) (any, error)) job.Job {
	j := r.jobs.Create(jobType)
	r.gauge(jobType)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.gauge(jobType)

		r.jobs.Update(j.ID, func(j *job.Job) {
			j.Status = job.StatusRunning
		})

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		result, err := fn(ctx)

		if err != nil {
			d := response.Detail(err)
			r.logger.Warn("job failed",
				zap.String("job_id", j.ID),
				zap.String("type", jobType),
				zap.Error(err),
			)
			r.jobs.Update(j.ID, func(j *job.Job) {
				j.Status = job.StatusFailed
				j.Error = &job.ErrorInfo{Code: d.Code, Message: d.Message, Cause: d.Cause}
			})
			return
		}

		r.jobs.Update(j.ID, func(j *job.Job) {
			j.Status = job.StatusComplete
			j.Progress = 100
			j.Result = result
		})
	}()

	return j
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) gauge(jobType string) {
	if r.metrics != nil {
		r.metrics.SetJobsActive(jobType, r.jobs.Active(jobType))
	}
}
