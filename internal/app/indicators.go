package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/indicator"
	"github.com/newthinker/frontier/internal/notifier"
	"github.com/newthinker/frontier/internal/report"
	"github.com/newthinker/frontier/internal/storage/archive"
)

// IndicatorRequest describes one technical analysis run.
type IndicatorRequest struct {
	Symbols []string         `json:"symbols"`
	From    time.Time        `json:"from"`
	To      time.Time        `json:"to"`
	Params  indicator.Params `json:"params"`
}

// IndicatorParams converts the indicators config section.
func IndicatorParams(c config.IndicatorsConfig) indicator.Params {
	return indicator.Params{
		SMAPeriods:      append([]int(nil), c.SMAPeriods...),
		RSIPeriod:       c.RSIPeriod,
		MACDFast:        c.MACDFast,
		MACDSlow:        c.MACDSlow,
		MACDSignal:      c.MACDSignal,
		MFIPeriod:       c.MFIPeriod,
		StochK:          c.StochK,
		StochD:          c.StochD,
		BollingerPeriod: c.BollingerPeriod,
		BollingerWidth:  c.BollingerWidth,
	}
}

// DefaultIndicatorRequest covers the portfolio symbols over the portfolio
// range with the configured windows.
func DefaultIndicatorRequest(cfg *config.Config) (IndicatorRequest, error) {
	from, to, err := cfg.Portfolio.Range()
	if err != nil {
		return IndicatorRequest{}, err
	}
	return IndicatorRequest{
		Symbols: cfg.Portfolio.Symbols,
		From:    from,
		To:      to,
		Params:  IndicatorParams(cfg.Indicators),
	}, nil
}

// IndicatorRun is a finished technical analysis. Skipped maps symbol to the
// reason it has no indicators.
type IndicatorRun struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Params    indicator.Params     `json:"params"`
	Snapshots []indicator.Snapshot `json:"snapshots"`
	Skipped   map[string]string    `json:"skipped,omitempty"`
	Location  string               `json:"location,omitempty"`
	Sets      []*indicator.Set     `json:"-"`
}

// RunIndicators computes moving averages, RSI, MACD, MFI, the stochastic
// oscillator and Bollinger bands for each symbol from warehouse bars.
func (a *Analyzer) RunIndicators(ctx context.Context, req IndicatorRequest) (*IndicatorRun, error) {
	run, err := a.runIndicators(ctx, req)

	_, _, reg := a.deps()
	if reg != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		reg.RecordIndicatorRun(status)
	}
	a.record(func(s *Stats) {
		if err != nil {
			s.Failures++
			return
		}
		s.Indicators++
		s.LastRunID = run.ID
		s.LastRunAt = run.CreatedAt
	})
	return run, err
}

func (a *Analyzer) runIndicators(ctx context.Context, req IndicatorRequest) (*IndicatorRun, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	symbols := unique(req.Symbols)
	if len(symbols) == 0 {
		return nil, core.Errorf(core.ErrInsufficientAssets, "no symbols given")
	}
	if a.warehouse == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no price warehouse configured")
	}

	run := &IndicatorRun{Params: req.Params, Skipped: make(map[string]string)}
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := a.warehouse.Bars(ctx, symbol, req.From, req.To)
		if err != nil {
			return nil, err
		}
		set, err := indicator.Compute(bars, req.Params)
		if err != nil {
			a.logger.Warn("indicators skipped", zap.String("symbol", symbol), zap.Error(err))
			run.Skipped[symbol] = err.Error()
			continue
		}
		run.Sets = append(run.Sets, set)
		run.Snapshots = append(run.Snapshots, set.Latest())
	}
	if len(run.Sets) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no bars for %v between %s and %s",
			symbols, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	}

	run.ID = a.newID()
	run.CreatedAt = a.now().UTC()

	runs, _, _ := a.deps()
	if runs != nil {
		run.Location = a.archiveIndicators(ctx, runs, run)
	}

	a.logger.Info("indicator run finished",
		zap.String("run_id", run.ID),
		zap.Int("symbols", len(run.Sets)),
		zap.Int("skipped", len(run.Skipped)),
		zap.String("location", run.Location),
	)

	a.notify(ctx, notifier.Event{
		Kind:      notifier.KindIndicators,
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
		Title:     fmt.Sprintf("Technical indicators for %d assets finished", len(run.Sets)),
		Text:      IndicatorText(run.Snapshots),
		Location:  run.Location,
		Summary:   run,
	})
	return run, nil
}

// IndicatorText renders the last values of each snapshot, one symbol per
// line. Values still warming up are shown as "-".
func IndicatorText(snaps []indicator.Snapshot) string {
	var b strings.Builder
	for _, s := range snaps {
		fmt.Fprintf(&b, "%s %s: close %s, RSI %s, MACD %s, MFI %s, %%K %s, %%D %s\n",
			s.Symbol, s.Date,
			fmtValue(s.Values["close"]), fmtValue(s.Values["rsi"]), fmtValue(s.Values["macd"]),
			fmtValue(s.Values["mfi"]), fmtValue(s.Values["stoch_k"]), fmtValue(s.Values["stoch_d"]))
	}
	return b.String()
}

func fmtValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func (a *Analyzer) archiveIndicators(ctx context.Context, runs *archive.Runs, run *IndicatorRun) string {
	files := make(map[string][]byte, 1+4*len(run.Sets))

	body, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		a.logger.Error("encoding indicator run", zap.String("run_id", run.ID), zap.Error(err))
		return ""
	}
	files[archive.IndicatorsFile] = body

	opts := a.chartOptions()
	for _, set := range run.Sets {
		var csv bytes.Buffer
		if err := report.WriteIndicatorsCSV(&csv, set); err != nil {
			a.logger.Warn("writing indicators csv", zap.String("symbol", set.Symbol), zap.Error(err))
		} else {
			files[archive.SymbolFile(set.Symbol, "indicators.csv")] = csv.Bytes()
		}

		charts := []struct {
			suffix string
			render func(*indicator.Set, report.ChartOptions) ([]byte, error)
		}{
			{"price.png", report.RenderPriceChart},
			{"macd.png", report.RenderMACDChart},
			{"oscillators.png", report.RenderOscillatorChart},
		}
		for _, c := range charts {
			png, err := c.render(set, opts)
			if err != nil {
				a.logger.Warn("rendering indicator chart",
					zap.String("symbol", set.Symbol), zap.String("chart", c.suffix), zap.Error(err))
				continue
			}
			files[archive.SymbolFile(set.Symbol, c.suffix)] = png
		}
	}

	dir, err := runs.Save(ctx, run.ID, run.CreatedAt, files)
	if err != nil {
		a.logger.Error("archiving indicator run", zap.String("run_id", run.ID), zap.Error(err))
		return ""
	}
	return dir
}
