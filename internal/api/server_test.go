// internal/api/server_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/config"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	deps := Dependencies{
		Analyzer: app.New(config.Defaults(), nil, zap.NewNop()),
	}
	srv, err := NewServer(cfg, deps, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", APIKey: "test-key"})

	w := serve(srv, http.MethodGet, "/api/health", "", map[string]string{"X-Request-ID": "req-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.Meta.RequestID)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Contains(t, data, "stats")
}

func TestServer_RequiresAnalyzer(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, nil)
	assert.Error(t, err)
}

func TestServer_APIAuth(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", APIKey: "test-key"})

	w := serve(srv, http.MethodGet, "/api/v1/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(srv, http.MethodGet, "/api/v1/jobs", "", map[string]string{"X-API-Key": "test-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(srv, http.MethodGet, "/api/v1/jobs", "", map[string]string{"Authorization": "Bearer test-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := serve(srv, http.MethodGet, "/api/v1/jobs", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_FrontierJobWithoutWarehouse(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := serve(srv, http.MethodPost, "/api/v1/frontier", `{"symbols":["AAA","BBB"],"trials":10}`, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	id := resp.Data.(map[string]any)["job_id"].(string)

	var data map[string]any
	require.Eventually(t, func() bool {
		w := serve(srv, http.MethodGet, "/api/v1/frontier/"+id, "", nil)
		if w.Code != http.StatusOK {
			return false
		}
		var resp response.SuccessResponse
		if json.Unmarshal(w.Body.Bytes(), &resp) != nil {
			return false
		}
		data = resp.Data.(map[string]any)
		return data["status"] == "failed"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "CONFIG_MISSING", data["error"].(map[string]any)["code"])
	srv.runner.Wait()
}

func TestServer_RoutesAndMethods(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", MetricsPath: "/metrics"})

	w := serve(srv, http.MethodGet, "/api/v1/frontier", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = serve(srv, http.MethodGet, "/api/v1/runs", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "archive is not configured")

	w = serve(srv, http.MethodPost, "/api/v1/sml", `{"symbols":["AAA"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(srv, http.MethodPost, "/api/v1/indicators", `{"symbols":["AAA"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no warehouse configured")
	assert.Contains(t, w.Body.String(), "CONFIG_MISSING")

	w = serve(srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestServer_RunBrowser(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", APIKey: "test-key"})
	key := map[string]string{"X-API-Key": "test-key"}

	w := serve(srv, http.MethodGet, "/runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(srv, http.MethodGet, "/", "", key)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/runs", w.Header().Get("Location"))

	w = serve(srv, http.MethodGet, "/runs", "", key)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "archive is disabled")

	w = serve(srv, http.MethodGet, "/runs/2026/10/run-1", "", key)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_NoMetricsPath(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := serve(srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
