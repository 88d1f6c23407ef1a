package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/config"
	"github.com/newthinker/frontier/internal/report"
)

var smlOpts struct {
	symbols    []string
	market     string
	from       string
	to         string
	rf         float64
	minYears   int
	commentary bool
	jsonOut    bool
}

var smlCmd = &cobra.Command{
	Use:   "sml",
	Short: "Classify assets against the Security Market Line",
	Long: `sml estimates each asset's beta against a market index on annual returns
and compares its realised return with the CAPM prediction.`,
	RunE: runSML,
}

func init() {
	f := smlCmd.Flags()
	f.StringSliceVar(&smlOpts.symbols, "symbols", nil, "asset symbols (default: portfolio.symbols)")
	f.StringVar(&smlOpts.market, "market", "", "market index name in the warehouse (default: sml.market)")
	f.StringVar(&smlOpts.from, "from", "", "start date YYYY-MM-DD")
	f.StringVar(&smlOpts.to, "to", "", "end date YYYY-MM-DD")
	f.Float64Var(&smlOpts.rf, "rf", 0, "annual risk-free rate")
	f.IntVar(&smlOpts.minYears, "min-years", 0, "minimum annual market returns")
	f.BoolVar(&smlOpts.commentary, "commentary", false, "ask the configured LLM for commentary")
	f.BoolVar(&smlOpts.jsonOut, "json", false, "print the analysis as JSON")

	rootCmd.AddCommand(smlCmd)
}

func runSML(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	req, err := app.DefaultSMLRequest(cfg)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("symbols") {
		req.Symbols = smlOpts.symbols
	}
	if f.Changed("market") {
		req.Market = smlOpts.market
	}
	if f.Changed("from") {
		if req.From, _, err = config.ParseRange(smlOpts.from, req.To.Format("2006-01-02")); err != nil {
			return err
		}
	}
	if f.Changed("to") {
		if _, req.To, err = config.ParseRange(req.From.Format("2006-01-02"), smlOpts.to); err != nil {
			return err
		}
	}
	if f.Changed("rf") {
		req.RiskFreeRate = smlOpts.rf
	}
	if f.Changed("min-years") {
		req.MinYears = smlOpts.minYears
	}
	if f.Changed("commentary") {
		req.Commentary = smlOpts.commentary
	}

	a, closeFn, err := app.Bootstrap(cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := a.RunSML(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("sml analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if smlOpts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprint(out, report.SMLText(run.Analysis))
	if run.Location != "" {
		fmt.Fprintf(out, "\nArchived at %s\n", run.Location)
	}
	if run.Commentary != "" {
		fmt.Fprintf(out, "\n%s\n", run.Commentary)
	}
	return nil
}
