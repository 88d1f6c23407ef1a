package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/newthinker/frontier/internal/frontier"
)

// WriteTrialsCSV writes one row per trial: return, volatility, sharpe and one
// w_<SYMBOL> column per asset.
func WriteTrialsCSV(w io.Writer, res *frontier.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"return", "volatility", "sharpe"}
	for _, s := range res.Symbols {
		header = append(header, "w_"+s)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(header))
	for i, t := range res.Trials {
		row[0] = formatFloat(t.Return)
		row[1] = formatFloat(t.Volatility)
		row[2] = formatFloat(t.Sharpe)
		for j, wt := range t.Weights {
			row[3+j] = formatFloat(wt)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing trial %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
