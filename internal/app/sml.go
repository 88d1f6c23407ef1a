package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/capm"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/notifier"
	"github.com/newthinker/frontier/internal/report"
	"github.com/newthinker/frontier/internal/storage/archive"
)

// SMLRequest describes one Security Market Line analysis.
type SMLRequest struct {
	Symbols      []string  `json:"symbols"`
	Market       string    `json:"market"` // index name in the warehouse
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	RiskFreeRate float64   `json:"risk_free_rate"`
	MinYears     int       `json:"min_years"`
	Commentary   bool      `json:"commentary"`
}

// DefaultSMLRequest builds a request from the portfolio and sml sections.
func DefaultSMLRequest(cfg *config.Config) (SMLRequest, error) {
	from, to, err := cfg.Portfolio.Range()
	if err != nil {
		return SMLRequest{}, err
	}
	return SMLRequest{
		Symbols:      cfg.Portfolio.Symbols,
		Market:       cfg.SML.Market,
		From:         from,
		To:           to,
		RiskFreeRate: cfg.SML.RiskFreeRate,
		MinYears:     cfg.SML.MinYears,
		Commentary:   cfg.Report.Commentary,
	}, nil
}

// SMLRun is a finished SML analysis.
type SMLRun struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Analysis   *capm.Analysis `json:"analysis"`
	Counts     map[string]int `json:"counts"`
	Commentary string         `json:"commentary,omitempty"`
	Location   string         `json:"location,omitempty"`
}

// RunSML fits each asset's beta against the market index on annual returns
// and classifies it against the Security Market Line.
func (a *Analyzer) RunSML(ctx context.Context, req SMLRequest) (*SMLRun, error) {
	run, err := a.runSML(ctx, req)

	_, _, reg := a.deps()
	if reg != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		reg.RecordSMLAnalysis(status)
	}
	a.record(func(s *Stats) {
		if err != nil {
			s.Failures++
			return
		}
		s.Analyses++
		s.LastRunID = run.ID
		s.LastRunAt = run.CreatedAt
	})
	return run, err
}

func (a *Analyzer) runSML(ctx context.Context, req SMLRequest) (*SMLRun, error) {
	if req.Market == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "no market index given")
	}
	symbols := unique(req.Symbols)
	if len(symbols) == 0 {
		return nil, core.Errorf(core.ErrInsufficientAssets, "no symbols given")
	}
	if a.warehouse == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no price warehouse configured")
	}

	rows, err := a.warehouse.Closes(ctx, symbols, req.From, req.To)
	if err != nil {
		return nil, err
	}
	market, err := a.warehouse.IndexCloses(ctx, req.Market, req.From, req.To)
	if err != nil {
		return nil, err
	}
	if len(market) == 0 {
		return nil, core.Errorf(core.ErrSymbolNotFound, "no closes for market index %q", req.Market)
	}
	if missing := missingSymbols(symbols, rows); len(missing) > 0 {
		a.logger.Warn("symbols without closes", zap.Strings("symbols", missing))
	}

	annual, err := capm.AnnualReturns(append(rows, market...))
	if err != nil {
		return nil, err
	}

	minYears := req.MinYears
	if minYears <= 0 {
		minYears = capm.MinObservations
	}
	analysis, err := capm.Analyze(annual, capm.Config{
		Market:       req.Market,
		RiskFreeRate: req.RiskFreeRate,
		MinYears:     minYears,
	})
	if err != nil {
		return nil, err
	}

	run := &SMLRun{
		ID:        a.newID(),
		CreatedAt: a.now().UTC(),
		Analysis:  analysis,
		Counts:    make(map[string]int),
	}
	for class, n := range analysis.Counts() {
		run.Counts[string(class)] = n
	}

	runs, provider, _ := a.deps()
	if req.Commentary && provider != nil {
		text, err := report.SMLCommentary(ctx, provider, analysis)
		if err != nil {
			a.logger.Warn("sml commentary failed", zap.String("run_id", run.ID), zap.Error(err))
		}
		run.Commentary = text
	}

	if runs != nil {
		run.Location = a.archiveSML(ctx, runs, run)
	}

	a.logger.Info("sml analysis finished",
		zap.String("run_id", run.ID),
		zap.String("market", analysis.Market),
		zap.Float64("market_return", analysis.MarketReturn),
		zap.Int("points", len(analysis.Points)),
		zap.Strings("skipped", analysis.Skipped),
	)

	a.notify(ctx, notifier.Event{
		Kind:      notifier.KindSML,
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
		Title:     fmt.Sprintf("SML analysis of %d assets against %s finished", len(analysis.Points), analysis.Market),
		Text:      report.SMLText(analysis),
		Location:  run.Location,
		Summary:   run,
	})

	return run, nil
}

func (a *Analyzer) archiveSML(ctx context.Context, runs *archive.Runs, run *SMLRun) string {
	files := make(map[string][]byte, 2)

	body, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		a.logger.Error("encoding sml analysis", zap.String("run_id", run.ID), zap.Error(err))
		return ""
	}
	files[archive.SMLFile] = body

	chart, err := report.RenderSMLChart(run.Analysis, a.chartOptions())
	if err != nil {
		a.logger.Warn("rendering sml chart", zap.String("run_id", run.ID), zap.Error(err))
	} else {
		files[archive.SMLChart] = chart
	}

	dir, err := runs.Save(ctx, run.ID, run.CreatedAt, files)
	if err != nil {
		a.logger.Error("archiving sml run", zap.String("run_id", run.ID), zap.Error(err))
		return ""
	}
	return dir
}
