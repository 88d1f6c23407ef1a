package api

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/app"
)

const indicatorsTimeout = 2 * time.Minute

// IndicatorRunner runs technical indicator analyses.
type IndicatorRunner interface {
	RunIndicators(ctx context.Context, req app.IndicatorRequest) (*app.IndicatorRun, error)
}

// IndicatorsHandler handles synchronous indicator requests.
type IndicatorsHandler struct {
	runner   IndicatorRunner
	defaults app.IndicatorRequest
}

// NewIndicatorsHandler creates a new indicators handler.
func NewIndicatorsHandler(runner IndicatorRunner, defaults app.IndicatorRequest) *IndicatorsHandler {
	return &IndicatorsHandler{runner: runner, defaults: defaults}
}

// Analyze computes indicators and returns the latest value of each series.
func (h *IndicatorsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var body IndicatorsBody
	if err := decode(r.Body, &body); err != nil {
		response.Fail(w, err)
		return
	}
	req, err := body.Request(h.defaults)
	if err != nil {
		response.Fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), indicatorsTimeout)
	defer cancel()

	run, err := h.runner.RunIndicators(ctx, req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, run)
}
