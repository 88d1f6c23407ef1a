package api

import (
	"context"
	"net/http"

	"github.com/newthinker/frontier/internal/api/response"
)

// TickerLister lists the symbols with stored prices.
type TickerLister interface {
	Tickers(ctx context.Context) ([]string, error)
}

// TickersHandler lists warehouse symbols.
type TickersHandler struct {
	lister TickerLister
}

// NewTickersHandler creates a new tickers handler.
func NewTickersHandler(lister TickerLister) *TickersHandler {
	return &TickersHandler{lister: lister}
}

// List returns every stored symbol.
func (h *TickersHandler) List(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.lister.Tickers(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	if tickers == nil {
		tickers = []string{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"tickers": tickers,
		"count":   len(tickers),
	})
}
