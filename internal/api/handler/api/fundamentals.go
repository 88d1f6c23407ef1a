package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/newthinker/frontier/internal/api/response"
	"github.com/newthinker/frontier/internal/core"
)

// FundamentalReader reads stored company snapshots.
type FundamentalReader interface {
	Fundamentals(ctx context.Context, symbols []string) ([]core.Fundamental, error)
}

// FundamentalsHandler serves the latest snapshot per symbol.
type FundamentalsHandler struct {
	reader FundamentalReader
}

// NewFundamentalsHandler creates a new fundamentals handler.
func NewFundamentalsHandler(reader FundamentalReader) *FundamentalsHandler {
	return &FundamentalsHandler{reader: reader}
}

// List returns snapshots for ?symbols=A,B or for every stored symbol.
func (h *FundamentalsHandler) List(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) > MaxIndicatorSymbols {
		response.Fail(w, core.Errorf(core.ErrInvalidRequest, "at most %d symbols per request", MaxIndicatorSymbols))
		return
	}

	snaps, err := h.reader.Fundamentals(r.Context(), symbols)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if snaps == nil {
		snaps = []core.Fundamental{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"fundamentals": snaps,
		"count":        len(snaps),
	})
}
