package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/frontier/internal/collector"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/core"
)

const defaultFetchConcurrency = 4

// FetchRequest selects what to load into the warehouse.
type FetchRequest struct {
	Symbols   []string
	From      time.Time
	To        time.Time
	Collector string // empty picks the first enabled collector

	// Fundamentals also snapshots profile, valuation and ESG data for
	// non-index symbols when the collector supports it.
	Fundamentals bool
}

// FetchReport summarises a fetch. Failed maps symbol to error text.
type FetchReport struct {
	Collector string            `json:"collector"`
	Prices    int               `json:"prices"`
	IndexRows int               `json:"index_rows"`
	Failed    map[string]string `json:"failed,omitempty"`

	Fundamentals      int               `json:"fundamentals"`
	FundamentalErrors map[string]string `json:"fundamental_errors,omitempty"`
}

// DefaultFetchRequest covers the portfolio symbols and every configured index
// over the portfolio range.
func DefaultFetchRequest(cfg *config.Config) (FetchRequest, error) {
	from, to, err := cfg.Portfolio.Range()
	if err != nil {
		return FetchRequest{}, err
	}
	symbols := append([]string(nil), cfg.Portfolio.Symbols...)
	for _, idx := range cfg.Indices {
		symbols = append(symbols, idx.Symbol)
	}
	fundamentals := false
	for _, cc := range cfg.Collectors {
		fundamentals = fundamentals || (cc.Enabled && cc.Fundamentals)
	}
	return FetchRequest{Symbols: unique(symbols), From: from, To: to, Fundamentals: fundamentals}, nil
}

// Fetch downloads daily bars for every symbol and upserts them into the
// warehouse. Symbols configured as indices go to the index table. A failing
// symbol is logged and reported but does not stop the others; an error is
// returned only when nothing could be stored.
func (a *Analyzer) Fetch(ctx context.Context, req FetchRequest) (*FetchReport, error) {
	if a.warehouse == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no price warehouse configured")
	}
	c, err := a.pickCollector(req.Collector)
	if err != nil {
		return nil, err
	}
	symbols := unique(req.Symbols)
	if len(symbols) == 0 {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "no symbols to fetch")
	}

	ccfg := a.cfg.Collectors[c.Name()]
	interval := ccfg.Interval
	if interval == "" {
		interval = "1d"
	}
	limit := ccfg.Concurrency
	if limit <= 0 {
		limit = defaultFetchConcurrency
	}
	indices := make(map[string]string, len(a.cfg.Indices))
	for _, idx := range a.cfg.Indices {
		indices[idx.Symbol] = idx.Name
	}

	var fc collector.FundamentalCollector
	if req.Fundamentals {
		var ok bool
		if fc, ok = collector.Fundamentals(c); !ok {
			a.logger.Warn("collector has no fundamentals, skipping snapshots", zap.String("collector", c.Name()))
		}
	}

	_, _, reg := a.deps()
	rep := &FetchReport{
		Collector:         c.Name(),
		Failed:            make(map[string]string),
		FundamentalErrors: make(map[string]string),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, symbol := range symbols {
		g.Go(func() error {
			bars, err := c.FetchHistory(gctx, symbol, req.From, req.To, interval)
			if err == nil {
				if name, ok := indices[symbol]; ok {
					err = a.storeIndex(gctx, name, symbol, bars, rep, &mu)
				} else {
					err = a.storePrices(gctx, bars, rep, &mu)
					if err == nil && fc != nil {
						a.storeFundamental(gctx, fc, symbol, rep, &mu)
					}
				}
			}
			if err != nil {
				a.logger.Warn("fetch failed",
					zap.String("collector", c.Name()),
					zap.String("symbol", symbol),
					zap.Error(err),
				)
				if reg != nil {
					reg.RecordFetchError(c.Name())
				}
				mu.Lock()
				rep.Failed[symbol] = err.Error()
				mu.Unlock()
				return nil
			}
			a.logger.Debug("fetched", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
			return nil
		})
	}
	g.Wait()

	if reg != nil {
		reg.RecordUpsert("tickers_index", rep.Prices)
		reg.RecordUpsert("index_daily", rep.IndexRows)
		if fc != nil {
			reg.RecordUpsert("fundamentals", rep.Fundamentals)
		}
	}
	a.record(func(s *Stats) { s.Fetches++ })

	a.logger.Info("fetch finished",
		zap.String("collector", c.Name()),
		zap.Int("symbols", len(symbols)),
		zap.Int("prices", rep.Prices),
		zap.Int("index_rows", rep.IndexRows),
		zap.Int("fundamentals", rep.Fundamentals),
		zap.Int("failed", len(rep.Failed)),
	)

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if len(rep.Failed) == len(symbols) {
		return rep, core.Errorf(core.ErrCollectorFailed, "all %d symbols failed", len(symbols))
	}
	return rep, nil
}

func (a *Analyzer) storePrices(ctx context.Context, bars []core.OHLCV, rep *FetchReport, mu *sync.Mutex) error {
	n, err := a.warehouse.UpsertPrices(ctx, bars)
	if err != nil {
		return err
	}
	mu.Lock()
	rep.Prices += n
	mu.Unlock()
	return nil
}

func (a *Analyzer) storeIndex(ctx context.Context, name, symbol string, bars []core.OHLCV, rep *FetchReport, mu *sync.Mutex) error {
	rows := make([]core.IndexBar, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, core.IndexBar{
			IndexName: name,
			Symbol:    symbol,
			Date:      core.Day(b.Time),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
		})
	}
	n, err := a.warehouse.UpsertIndex(ctx, rows)
	if err != nil {
		return err
	}
	mu.Lock()
	rep.IndexRows += n
	mu.Unlock()
	return nil
}

// storeFundamental snapshots one symbol. A failure is reported separately
// and leaves the stored prices in place.
func (a *Analyzer) storeFundamental(ctx context.Context, fc collector.FundamentalCollector, symbol string, rep *FetchReport, mu *sync.Mutex) {
	f, err := fc.FetchFundamental(ctx, symbol)
	n := 0
	if err == nil {
		n, err = a.warehouse.UpsertFundamentals(ctx, []core.Fundamental{*f})
	}
	if err != nil {
		a.logger.Warn("fundamentals failed", zap.String("symbol", symbol), zap.Error(err))
	}
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		rep.FundamentalErrors[symbol] = err.Error()
		return
	}
	rep.Fundamentals += n
}

// Fundamentals returns the latest stored snapshot of each symbol. An empty
// list means every symbol with a snapshot.
func (a *Analyzer) Fundamentals(ctx context.Context, symbols []string) ([]core.Fundamental, error) {
	if a.warehouse == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no price warehouse configured")
	}
	return a.warehouse.Fundamentals(ctx, unique(symbols))
}

// pickCollector resolves a collector by name, or the first enabled one.
func (a *Analyzer) pickCollector(name string) (collector.Collector, error) {
	return a.collectors.Resolve(name)
}

// Tickers lists the symbols stored in the warehouse.
func (a *Analyzer) Tickers(ctx context.Context) ([]string, error) {
	if a.warehouse == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no price warehouse configured")
	}
	return a.warehouse.Tickers(ctx)
}
