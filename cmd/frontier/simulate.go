package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/report"
)

var simulateOpts struct {
	symbols    []string
	from       string
	to         string
	returnKind string
	trials     int
	workers    int
	seed       uint64
	sampler    string
	rf         float64
	commentary bool
	jsonOut    bool
	csvPath    string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate random portfolios and report the frontier corners",
	Long: `Simulate draws random long-only weight vectors over the selected assets,
reports the minimum-variance and maximum-Sharpe portfolios and archives the
trial cloud when an archive is configured.`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringSliceVar(&simulateOpts.symbols, "symbols", nil, "asset symbols (default: portfolio.symbols)")
	f.StringVar(&simulateOpts.from, "from", "", "start date YYYY-MM-DD")
	f.StringVar(&simulateOpts.to, "to", "", "end date YYYY-MM-DD")
	f.StringVar(&simulateOpts.returnKind, "returns", "", "return kind: simple or log")
	f.IntVar(&simulateOpts.trials, "trials", 0, "number of random portfolios")
	f.IntVar(&simulateOpts.workers, "workers", 0, "parallel workers (0 runs sequentially)")
	f.Uint64Var(&simulateOpts.seed, "seed", 0, "random seed (0 picks one)")
	f.StringVar(&simulateOpts.sampler, "sampler", "", "weight sampler: uniform or dirichlet")
	f.Float64Var(&simulateOpts.rf, "rf", 0, "annual risk-free rate")
	f.BoolVar(&simulateOpts.commentary, "commentary", false, "ask the configured LLM for commentary")
	f.BoolVar(&simulateOpts.jsonOut, "json", false, "print the summary as JSON")
	f.StringVar(&simulateOpts.csvPath, "csv", "", "also write every trial to this CSV file")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	req, err := simulateRequest(cmd, cfg)
	if err != nil {
		return err
	}

	a, closeFn, err := app.Bootstrap(cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := a.RunFrontier(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if simulateOpts.csvPath != "" {
		if err := writeTrials(simulateOpts.csvPath, run); err != nil {
			return err
		}
		log.Info("trials written", zap.String("path", simulateOpts.csvPath))
	}

	out := cmd.OutOrStdout()
	if simulateOpts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprint(out, run.Summary.Text())
	if run.Location != "" {
		fmt.Fprintf(out, "\nArchived at %s\n", run.Location)
	}
	if run.Summary.Commentary != "" {
		fmt.Fprintf(out, "\n%s\n", run.Summary.Commentary)
	}
	return nil
}

// simulateRequest applies the flags the user set over the configured defaults.
func simulateRequest(cmd *cobra.Command, cfg *config.Config) (app.Request, error) {
	req, err := app.DefaultRequest(cfg)
	if err != nil {
		return req, err
	}
	f := cmd.Flags()
	if f.Changed("symbols") {
		req.Symbols = simulateOpts.symbols
	}
	if f.Changed("from") || f.Changed("to") {
		from, to := simulateOpts.from, simulateOpts.to
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
	if f.Changed("returns") {
		req.ReturnKind = core.ReturnKind(simulateOpts.returnKind)
		if !req.ReturnKind.Valid() {
			return req, fmt.Errorf("unknown return kind %q", simulateOpts.returnKind)
		}
	}
	if f.Changed("trials") {
		req.Trials = simulateOpts.trials
	}
	if f.Changed("workers") {
		req.Workers = simulateOpts.workers
	}
	if f.Changed("seed") {
		req.Seed = simulateOpts.seed
	}
	if f.Changed("sampler") {
		req.Sampler = simulateOpts.sampler
	}
	if f.Changed("rf") {
		req.RiskFreeRate = simulateOpts.rf
	}
	if f.Changed("commentary") {
		req.Commentary = simulateOpts.commentary
	}
	return req, nil
}

func writeTrials(path string, run *app.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.WriteTrialsCSV(f, run.Result); err != nil {
		f.Close()
		return fmt.Errorf("writing trials: %w", err)
	}
	return f.Close()
}
