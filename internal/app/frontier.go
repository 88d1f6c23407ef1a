package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/frontier"
	"github.com/newthinker/frontier/internal/notifier"
	"github.com/newthinker/frontier/internal/report"
	"github.com/newthinker/frontier/internal/returns"
	"github.com/newthinker/frontier/internal/storage/archive"
)

// Request describes one frontier simulation.
type Request struct {
	Symbols        []string        `json:"symbols"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	ReturnKind     core.ReturnKind `json:"return_kind"`
	FillForward    bool            `json:"fill_forward"`
	Trials         int             `json:"trials"`
	PeriodsPerYear int             `json:"periods_per_year"`
	RiskFreeRate   float64         `json:"risk_free_rate"`
	Sampler        string          `json:"sampler"`
	Workers        int             `json:"workers"` // 0 runs sequentially
	Seed           uint64          `json:"seed"`    // 0 draws a fresh seed
	Commentary     bool            `json:"commentary"`
}

// DefaultRequest builds a request from the portfolio and simulation sections.
func DefaultRequest(cfg *config.Config) (Request, error) {
	from, to, err := cfg.Portfolio.Range()
	if err != nil {
		return Request{}, err
	}
	return Request{
		Symbols:        cfg.Portfolio.Symbols,
		From:           from,
		To:             to,
		ReturnKind:     core.ReturnKind(cfg.Portfolio.ReturnKind),
		FillForward:    cfg.Portfolio.FillForward,
		Trials:         cfg.Simulation.Trials,
		PeriodsPerYear: cfg.Simulation.PeriodsPerYear,
		RiskFreeRate:   cfg.Simulation.RiskFreeRate,
		Sampler:        cfg.Simulation.Sampler,
		Workers:        cfg.Simulation.Workers,
		Seed:           cfg.Simulation.Seed,
		Commentary:     cfg.Report.Commentary,
	}, nil
}

// Run is a finished frontier simulation.
type Run struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Result    *frontier.Result `json:"-"`
	Summary   *report.Summary  `json:"summary"`
	Location  string           `json:"location,omitempty"`
}

// RunFrontier loads closes for the requested symbols, simulates the
// portfolio cloud and publishes the outcome.
func (a *Analyzer) RunFrontier(ctx context.Context, req Request) (*Run, error) {
	start := a.now()
	run, err := a.runFrontier(ctx, req)

	_, _, reg := a.deps()
	status := "success"
	trials := 0
	if err != nil {
		status = "error"
	} else {
		trials = len(run.Result.Trials)
	}
	if reg != nil {
		reg.RecordSimulation(status, trials, a.now().Sub(start).Seconds())
	}
	a.record(func(s *Stats) {
		if err != nil {
			s.Failures++
			return
		}
		s.Simulations++
		s.LastRunID = run.ID
		s.LastRunAt = run.CreatedAt
	})
	return run, err
}

func (a *Analyzer) runFrontier(ctx context.Context, req Request) (*Run, error) {
	sampler, err := frontier.SamplerByName(req.Sampler)
	if err != nil {
		return nil, err
	}
	simCfg := frontier.Config{
		Trials:         req.Trials,
		PeriodsPerYear: req.PeriodsPerYear,
		RiskFreeRate:   req.RiskFreeRate,
		Sampler:        sampler,
	}
	if err := simCfg.Validate(); err != nil {
		return nil, err
	}
	symbols := unique(req.Symbols)
	if len(symbols) < 2 {
		return nil, core.Errorf(core.ErrInsufficientAssets, "need at least 2 symbols, got %d", len(symbols))
	}

	m, err := a.loadReturns(ctx, symbols, req)
	if err != nil {
		return nil, err
	}

	sim, err := frontier.New(m, simCfg)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	a.logger.Info("running frontier simulation",
		zap.Strings("symbols", sim.Symbols()),
		zap.Int("observations", m.ValidRows()),
		zap.Int("trials", req.Trials),
		zap.String("sampler", sampler.Name()),
		zap.Int("workers", req.Workers),
		zap.Uint64("seed", seed),
	)

	var res *frontier.Result
	if req.Workers > 0 {
		res, err = sim.RunParallel(ctx, seed, req.Workers)
	} else {
		res, err = sim.Run(ctx, rand.New(rand.NewPCG(seed, seed)))
	}
	if err != nil {
		return nil, err
	}

	run := &Run{ID: a.newID(), CreatedAt: a.now().UTC(), Result: res}
	run.Summary = report.Summarize(res, report.Options{
		RunID:      run.ID,
		CreatedAt:  run.CreatedAt,
		From:       req.From,
		To:         req.To,
		ReturnKind: string(req.ReturnKind),
		Seed:       seed,
		Threshold:  a.cfg.Report.CompositionThreshold,
	})

	runs, provider, _ := a.deps()
	if req.Commentary && provider != nil {
		text, err := report.Commentary(ctx, provider, run.Summary)
		if err != nil {
			a.logger.Warn("commentary failed", zap.String("run_id", run.ID), zap.Error(err))
		}
		run.Summary.Commentary = text
	}

	if runs != nil {
		run.Location = a.archiveFrontier(ctx, runs, run)
	}

	a.logger.Info("frontier simulation finished",
		zap.String("run_id", run.ID),
		zap.Float64("min_volatility", run.Summary.MinVariance.Volatility),
		zap.Float64("max_sharpe", run.Summary.MaxSharpe.Sharpe),
		zap.String("location", run.Location),
	)

	a.notify(ctx, notifier.Event{
		Kind:      notifier.KindFrontier,
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
		Title:     fmt.Sprintf("Frontier run over %d assets finished", len(res.Symbols)),
		Text:      run.Summary.Brief(),
		Location:  run.Location,
		Summary:   run.Summary,
	})

	return run, nil
}

// loadReturns reads closes from the warehouse and differences them.
func (a *Analyzer) loadReturns(ctx context.Context, symbols []string, req Request) (*returns.Matrix, error) {
	if a.warehouse == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no price warehouse configured")
	}
	rows, err := a.warehouse.Closes(ctx, symbols, req.From, req.To)
	if err != nil {
		return nil, err
	}
	if missing := missingSymbols(symbols, rows); len(missing) > 0 {
		return nil, core.Errorf(core.ErrNoData, "no closes for %v between %s and %s",
			missing, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	}
	return returns.FromPrices(rows, returns.Options{Kind: req.ReturnKind, FillForward: req.FillForward})
}

func (a *Analyzer) archiveFrontier(ctx context.Context, runs *archive.Runs, run *Run) string {
	files := make(map[string][]byte, 3)

	summary, err := json.MarshalIndent(run.Summary, "", "  ")
	if err != nil {
		a.logger.Error("encoding summary", zap.String("run_id", run.ID), zap.Error(err))
		return ""
	}
	files[archive.SummaryFile] = summary

	var csv bytes.Buffer
	if err := report.WriteTrialsCSV(&csv, run.Result); err != nil {
		a.logger.Warn("writing trials csv", zap.String("run_id", run.ID), zap.Error(err))
	} else {
		files[archive.TrialsFile] = csv.Bytes()
	}

	chart, err := report.RenderFrontierChart(run.Result, a.chartOptions())
	if err != nil {
		a.logger.Warn("rendering frontier chart", zap.String("run_id", run.ID), zap.Error(err))
	} else {
		files[archive.ChartFile] = chart
	}

	dir, err := runs.Save(ctx, run.ID, run.CreatedAt, files)
	if err != nil {
		a.logger.Error("archiving run", zap.String("run_id", run.ID), zap.Error(err))
		return ""
	}
	return dir
}

func (a *Analyzer) chartOptions() report.ChartOptions {
	return report.ChartOptions{Width: a.cfg.Report.ChartWidth, Height: a.cfg.Report.ChartHeight}
}

func (a *Analyzer) notify(ctx context.Context, event notifier.Event) {
	if a.notifiers.Len() == 0 {
		return
	}
	for name, err := range a.notifiers.NotifyAll(ctx, event) {
		a.logger.Warn("notification failed",
			zap.String("notifier", name),
			zap.String("run_id", event.RunID),
			zap.Error(err),
		)
	}
}

func unique(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func missingSymbols(symbols []string, rows []core.PriceRow) []string {
	have := make(map[string]struct{}, len(symbols))
	for _, r := range rows {
		have[r.Symbol] = struct{}{}
	}
	var missing []string
	for _, s := range symbols {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
