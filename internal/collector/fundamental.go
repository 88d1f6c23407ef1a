package collector

import (
	"context"

	"github.com/newthinker/frontier/internal/core"
)

// FundamentalCollector is a Collector that can also snapshot company
// profile, valuation and ESG data.
type FundamentalCollector interface {
	Collector

	// FetchFundamental returns today's snapshot for symbol.
	FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error)
}

// Fundamentals returns c as a FundamentalCollector when it supports
// snapshots.
func Fundamentals(c Collector) (FundamentalCollector, bool) {
	fc, ok := c.(FundamentalCollector)
	return fc, ok
}
