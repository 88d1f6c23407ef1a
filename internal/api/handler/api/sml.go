package api

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/app"
)

const smlTimeout = 2 * time.Minute

// SMLRunner runs Security Market Line analyses.
type SMLRunner interface {
	RunSML(ctx context.Context, req app.SMLRequest) (*app.SMLRun, error)
}

// SMLHandler handles synchronous SML requests.
type SMLHandler struct {
	sml      SMLRunner
	defaults app.SMLRequest
}

// NewSMLHandler creates a new SML handler.
func NewSMLHandler(sml SMLRunner, defaults app.SMLRequest) *SMLHandler {
	return &SMLHandler{sml: sml, defaults: defaults}
}

// Analyze runs an SML analysis and returns it.
func (h *SMLHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var body SMLBody
	if err := decode(r.Body, &body); err != nil {
		response.Fail(w, err)
		return
	}
	req, err := body.Request(h.defaults)
	if err != nil {
		response.Fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), smlTimeout)
	defer cancel()

	run, err := h.sml.RunSML(ctx, req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, run)
}
