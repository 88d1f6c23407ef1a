package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/indicator"
)

type fakeIndicators struct {
	got *app.IndicatorRequest
	err error
}

func (f *fakeIndicators) RunIndicators(ctx context.Context, req app.IndicatorRequest) (*app.IndicatorRun, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	rsi := 61.5
	return &app.IndicatorRun{
		ID:        "ind-1",
		Params:    req.Params,
		Snapshots: []indicator.Snapshot{{Symbol: "BBVA.MC", Date: "2024-12-31", Bars: 250, Values: map[string]*float64{"rsi": &rsi, "sma_200": nil}}},
	}, nil
}

func indicatorDefaults() app.IndicatorRequest {
	return app.IndicatorRequest{
		Symbols: []string{"BBVA.MC"},
		From:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Params:  indicator.DefaultParams(),
	}
}

func postIndicators(h *IndicatorsHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/indicators", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Analyze(w, req)
	return w
}

func TestIndicatorsHandler_Analyze(t *testing.T) {
	runner := &fakeIndicators{}
	h := NewIndicatorsHandler(runner, indicatorDefaults())

	w := postIndicators(h, `{"symbols":["SAN.MC","ITX.MC"],"from":"2023-01-01","rsi_period":21,"sma_periods":[10,30]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "ind-1", data["id"])
	snaps := data["snapshots"].([]any)
	require.Len(t, snaps, 1)
	values := snaps[0].(map[string]any)["values"].(map[string]any)
	assert.Equal(t, 61.5, values["rsi"])
	assert.Nil(t, values["sma_200"])

	require.NotNil(t, runner.got)
	assert.Equal(t, []string{"SAN.MC", "ITX.MC"}, runner.got.Symbols)
	assert.Equal(t, 2023, runner.got.From.Year())
	assert.Equal(t, 21, runner.got.Params.RSIPeriod)
	assert.Equal(t, []int{10, 30}, runner.got.Params.SMAPeriods)
	assert.Equal(t, 26, runner.got.Params.MACDSlow)
}

func TestIndicatorsHandler_Errors(t *testing.T) {
	many := make([]string, MaxIndicatorSymbols+1)
	for i := range many {
		many[i] = fmt.Sprintf(`"S%d"`, i)
	}

	tests := []struct {
		name     string
		defaults app.IndicatorRequest
		body     string
		err      error
		status   int
		code     string
	}{
		{"no symbols", app.IndicatorRequest{Params: indicator.DefaultParams()}, `{}`, nil, http.StatusUnprocessableEntity, "INSUFFICIENT_ASSETS"},
		{"too many symbols", indicatorDefaults(), `{"symbols":[` + strings.Join(many, ",") + `]}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"window of one", indicatorDefaults(), `{"stoch_k":1}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"macd inverted", indicatorDefaults(), `{"macd_fast":40}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad date", indicatorDefaults(), `{"to":"31/12/2024"}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown field", indicatorDefaults(), `{"adx":14}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"no bars", indicatorDefaults(), `{}`, core.Errorf(core.ErrNoData, "no bars"), http.StatusNotFound, "NO_DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewIndicatorsHandler(&fakeIndicators{err: tt.err}, tt.defaults)
			w := postIndicators(h, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}
