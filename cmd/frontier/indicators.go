package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/report"
	"github.com/newthinker/frontier/internal/storage/archive"
)

var indicatorsOpts struct {
	symbols []string
	from    string
	to      string
	sma     []int
	rsi     int
	jsonOut bool
	csvDir  string
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Compute technical indicators from warehouse bars",
	Long: `indicators computes simple moving averages, RSI, MACD, MFI, the stochastic
oscillator and Bollinger bands for each symbol and prints their latest values.`,
	RunE: runIndicators,
}

func init() {
	f := indicatorsCmd.Flags()
	f.StringSliceVar(&indicatorsOpts.symbols, "symbols", nil, "symbols (default: portfolio.symbols)")
	f.StringVar(&indicatorsOpts.from, "from", "", "start date YYYY-MM-DD")
	f.StringVar(&indicatorsOpts.to, "to", "", "end date YYYY-MM-DD")
	f.IntSliceVar(&indicatorsOpts.sma, "sma", nil, "moving average windows (default: indicators.sma_periods)")
	f.IntVar(&indicatorsOpts.rsi, "rsi", 0, "RSI window")
	f.BoolVar(&indicatorsOpts.jsonOut, "json", false, "print the latest values as JSON")
	f.StringVar(&indicatorsOpts.csvDir, "csv", "", "also write one CSV per symbol into this directory")

	rootCmd.AddCommand(indicatorsCmd)
}

func runIndicators(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	req, err := indicatorsRequest(cmd, cfg)
	if err != nil {
		return err
	}

	a, closeFn, err := app.Bootstrap(cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := a.RunIndicators(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("indicator analysis failed: %w", err)
	}

	if dir := indicatorsOpts.csvDir; dir != "" {
		if err := writeIndicators(dir, run); err != nil {
			return err
		}
		log.Info("indicators written", zap.String("dir", dir), zap.Int("symbols", len(run.Sets)))
	}

	out := cmd.OutOrStdout()
	if indicatorsOpts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprint(out, app.IndicatorText(run.Snapshots))
	for sym, reason := range run.Skipped {
		fmt.Fprintf(out, "%s skipped: %s\n", sym, reason)
	}
	if run.Location != "" {
		fmt.Fprintf(out, "\nArchived at %s\n", run.Location)
	}
	return nil
}

// indicatorsRequest applies the flags the user set over the configured defaults.
func indicatorsRequest(cmd *cobra.Command, cfg *config.Config) (app.IndicatorRequest, error) {
	req, err := app.DefaultIndicatorRequest(cfg)
	if err != nil {
		return req, err
	}
	f := cmd.Flags()
	if f.Changed("symbols") {
		req.Symbols = indicatorsOpts.symbols
	}
	if f.Changed("from") || f.Changed("to") {
		from, to := indicatorsOpts.from, indicatorsOpts.to
		if from == "" {
			from = req.From.Format("2006-01-02")
		}
		if to == "" {
			to = req.To.Format("2006-01-02")
		}
		if req.From, req.To, err = config.ParseRange(from, to); err != nil {
			return req, err
		}
	}
	if f.Changed("sma") {
		req.Params.SMAPeriods = indicatorsOpts.sma
	}
	if f.Changed("rsi") {
		req.Params.RSIPeriod = indicatorsOpts.rsi
	}
	return req, req.Params.Validate()
}

func writeIndicators(dir string, run *app.IndicatorRun) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, set := range run.Sets {
		path := filepath.Join(dir, archive.SymbolFile(set.Symbol, "indicators.csv"))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := report.WriteIndicatorsCSV(f, set); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
