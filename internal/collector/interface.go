package collector

import (
	"context"
	"time"

	"github.com/newthinker/frontier/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled  bool
	Interval string
	Timeout  time.Duration
	BaseURL  string
	Extra    map[string]any
}

// Collector defines the interface for market data sources
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchHistory returns bars for symbol in [start, end], oldest first.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
