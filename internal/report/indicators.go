package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/newthinker/frontier/internal/indicator"
	charts "github.com/vicanso/go-charts/v2"
)

// WriteIndicatorsCSV writes one row per bar: the date and every indicator
// column. Warm-up values are left empty.
func WriteIndicatorsCSV(w io.Writer, set *indicator.Set) error {
	cw := csv.NewWriter(w)
	cols := set.Columns()

	header := make([]string, 0, len(cols)+1)
	header = append(header, "date")
	for _, c := range cols {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(header))
	for i, d := range set.Dates {
		row[0] = d.Format("2006-01-02")
		for j, c := range cols {
			row[j+1] = ""
			if v := c.Values[i]; !math.IsNaN(v) {
				row[j+1] = formatFloat(v)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing bar %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// RenderPriceChart draws closes with the moving averages and Bollinger bands.
func RenderPriceChart(set *indicator.Set, opts ChartOptions) ([]byte, error) {
	names := []string{"Close"}
	series := [][]float64{set.Close}
	for _, c := range set.Columns() {
		switch c.Name {
		case "close", "bb_middle":
		case "bb_upper", "bb_lower":
			names = append(names, c.Name)
			series = append(series, c.Values)
		default:
			if period, ok := strings.CutPrefix(c.Name, "sma_"); ok {
				names = append(names, "SMA "+period)
				series = append(series, c.Values)
			}
		}
	}
	lo, hi := bounds(series...)
	return renderSeries(set, fmt.Sprintf("%s price", set.Symbol), "Moving averages and Bollinger bands",
		names, series, lo, hi, opts)
}

// RenderMACDChart draws the MACD line, its signal line and the histogram.
func RenderMACDChart(set *indicator.Set, opts ChartOptions) ([]byte, error) {
	p := set.Params
	series := [][]float64{set.MACD.Line, set.MACD.Signal, set.MACD.Histogram}
	lo, hi := bounds(series...)
	return renderSeries(set, fmt.Sprintf("%s MACD", set.Symbol),
		fmt.Sprintf("%d/%d/%d", p.MACDFast, p.MACDSlow, p.MACDSignal),
		[]string{"MACD", "Signal", "Histogram"}, series, lo, hi, opts)
}

// RenderOscillatorChart draws RSI, MFI and the stochastic pair on a 0-100
// scale.
func RenderOscillatorChart(set *indicator.Set, opts ChartOptions) ([]byte, error) {
	p := set.Params
	return renderSeries(set, fmt.Sprintf("%s oscillators", set.Symbol),
		fmt.Sprintf("RSI %d, MFI %d, stochastic %d/%d", p.RSIPeriod, p.MFIPeriod, p.StochK, p.StochD),
		[]string{"RSI", "MFI", "%K", "%D"},
		[][]float64{set.RSI, set.MFI, set.Stochastic.K, set.Stochastic.D},
		0, 100, opts)
}

func renderSeries(set *indicator.Set, title, subtitle string, names []string, series [][]float64, yMin, yMax float64, opts ChartOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if len(set.Dates) == 0 {
		return nil, fmt.Errorf("no bars to plot")
	}
	if lo, _ := bounds(series...); math.IsInf(lo, 1) {
		return nil, fmt.Errorf("no defined values to plot for %s", title)
	}

	labels := make([]string, len(set.Dates))
	for i, d := range set.Dates {
		labels[i] = d.Format("2006-01-02")
	}
	values := make([][]float64, len(series))
	for i, s := range series {
		values[i] = make([]float64, len(s))
		for j, v := range s {
			if math.IsNaN(v) {
				v = charts.GetNullValue()
			}
			values[i][j] = v
		}
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: min(len(labels), 8),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Left: charts.PositionRight}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", title, err)
	}
	return p.Bytes()
}
