package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/api/job"
	"github.com/newthinker/frontier/internal/api/response"
)

func newTestRunner() *Runner {
	return NewRunner(job.NewStore(10, time.Hour), nil, zap.NewNop(), time.Minute)
}

// waitDone blocks until the job has finished and returns it.
func waitDone(t *testing.T, r *Runner, id string) job.Job {
	t.Helper()
	var j job.Job
	require.Eventually(t, func() bool {
		var err error
		j, err = r.Jobs().Get(id)
		return err == nil && j.Status.Done()
	}, 2*time.Second, 5*time.Millisecond)
	return j
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}
