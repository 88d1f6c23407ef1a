package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/config"
)

var fetchOpts struct {
	symbols   []string
	from      string
	to        string
	collector    string
	fundamentals bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download daily bars into the price warehouse",
	Long: `fetch downloads daily bars for the portfolio symbols and configured
indices and upserts them into the warehouse. Existing rows are overwritten.`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringSliceVar(&fetchOpts.symbols, "symbols", nil, "symbols to fetch (default: portfolio symbols and indices)")
	f.StringVar(&fetchOpts.from, "from", "", "start date YYYY-MM-DD")
	f.StringVar(&fetchOpts.to, "to", "", "end date YYYY-MM-DD")
	f.StringVar(&fetchOpts.collector, "collector", "", "collector name (default: first enabled)")
	f.BoolVar(&fetchOpts.fundamentals, "fundamentals", false, "also snapshot profile, valuation ratios and ESG scores")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	req, err := app.DefaultFetchRequest(cfg)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("symbols") {
		req.Symbols = fetchOpts.symbols
	}
	if fetchOpts.from != "" || fetchOpts.to != "" {
		from, to := fetchOpts.from, fetchOpts.to
		if from == "" {
			from = req.From.Format("2006-01-02")
		}
		if req.From, req.To, err = config.ParseRange(from, to); err != nil {
			return err
		}
	}
	req.Collector = fetchOpts.collector
	if cmd.Flags().Changed("fundamentals") {
		req.Fundamentals = fetchOpts.fundamentals
	}

	a, closeFn, err := app.Bootstrap(cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	rep, err := a.Fetch(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Collector:  %s\n", rep.Collector)
	fmt.Fprintf(out, "Prices:     %d rows\n", rep.Prices)
	fmt.Fprintf(out, "Index:      %d rows\n", rep.IndexRows)
	if req.Fundamentals {
		fmt.Fprintf(out, "Snapshots:  %d rows\n", rep.Fundamentals)
		printFailures(out, "Snapshot failures", rep.FundamentalErrors)
	}
	printFailures(out, "Failed", rep.Failed)
	return nil
}

func printFailures(out io.Writer, label string, failed map[string]string) {
	if len(failed) == 0 {
		return
	}
	symbols := make([]string, 0, len(failed))
	for s := range failed {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	fmt.Fprintf(out, "%s: %d symbols\n", label, len(symbols))
	for _, s := range symbols {
		fmt.Fprintf(out, "  %-10s %s\n", s, failed[s])
	}
}
