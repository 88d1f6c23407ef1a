package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/newthinker/frontier/internal/capm"
	"github.com/newthinker/frontier/internal/frontier"
	charts "github.com/vicanso/go-charts/v2"
)

// ChartOptions sizes rendered charts.
type ChartOptions struct {
	Width   int
	Height  int
	Buckets int // volatility buckets for the frontier envelope
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width <= 0 {
		o.Width = 900
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Buckets <= 0 {
		o.Buckets = 40
	}
	return o
}

// EnvelopePoint is the best return seen in one volatility bucket.
type EnvelopePoint struct {
	Volatility float64
	Return     float64
}

// Envelope approximates the efficient frontier as the maximum return per
// volatility bucket. Empty buckets are omitted.
func Envelope(res *frontier.Result, buckets int) []EnvelopePoint {
	if len(res.Trials) == 0 || buckets <= 0 {
		return nil
	}
	volMin, volMax, _, _ := res.Extents()
	width := (volMax - volMin) / float64(buckets)

	best := make([]float64, buckets)
	for i := range best {
		best[i] = math.Inf(-1)
	}
	for _, t := range res.Trials {
		b := buckets - 1
		if width > 0 {
			b = min(int((t.Volatility-volMin)/width), buckets-1)
		}
		best[b] = math.Max(best[b], t.Return)
	}

	var out []EnvelopePoint
	for i, r := range best {
		if math.IsInf(r, -1) {
			continue
		}
		out = append(out, EnvelopePoint{Volatility: volMin + (float64(i)+0.5)*width, Return: r})
	}
	return out
}

// RenderFrontierChart draws the frontier envelope and the capital market line
// through the maximum-Sharpe portfolio as a PNG.
func RenderFrontierChart(res *frontier.Result, opts ChartOptions) ([]byte, error) {
	opts = opts.withDefaults()
	env := Envelope(res, opts.Buckets)
	if len(env) == 0 {
		return nil, fmt.Errorf("no trials to plot")
	}

	best := res.Optimal()
	labels := make([]string, len(env))
	frontierLine := make([]float64, len(env))
	cml := make([]float64, len(env))
	for i, p := range env {
		labels[i] = fmt.Sprintf("%.1f%%", p.Volatility*100)
		frontierLine[i] = p.Return * 100
		cml[i] = (res.RiskFreeRate + best.Sharpe*p.Volatility) * 100
	}

	yMin, yMax := bounds(frontierLine, cml)
	names := []string{"Efficient frontier", "Capital market line"}

	p, err := charts.LineRender(
		[][]float64{frontierLine, cml},
		charts.TitleTextOptionFunc("Efficient frontier",
			fmt.Sprintf("%d portfolios, max Sharpe %.3f at %.1f%% volatility", len(res.Trials), best.Sharpe, best.Volatility*100)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: min(len(labels), 10),
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
		return nil, fmt.Errorf("failed to render frontier chart: %w", err)
	}
	return p.Bytes()
}

// RenderSMLChart compares each asset's realised return with its CAPM
// prediction, assets ordered by beta.
func RenderSMLChart(a *capm.Analysis, opts ChartOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("no assets to plot")
	}

	points := append([]capm.Point(nil), a.Points...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Beta < points[j].Beta })

	labels := make([]string, len(points))
	actual := make([]float64, len(points))
	predicted := make([]float64, len(points))
	for i, p := range points {
		labels[i] = fmt.Sprintf("%s (%.2f)", p.Symbol, p.Beta)
		actual[i] = p.Expected * 100
		predicted[i] = p.CAPM * 100
	}

	yMin, yMax := bounds(actual, predicted)
	counts := a.Counts()
	names := []string{"Realised", "CAPM"}

	p, err := charts.BarRender(
		[][]float64{actual, predicted},
		charts.TitleTextOptionFunc("Security Market Line",
			fmt.Sprintf("E[Rm] %.2f%%, Rf %.2f%%, TP=%d FP=%d FN=%d TN=%d",
				a.MarketReturn*100, a.RiskFreeRate*100,
				counts[capm.ClassTP], counts[capm.ClassFP], counts[capm.ClassFN], counts[capm.ClassTN])),
		charts.XAxisDataOptionFunc(labels),
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
		return nil, fmt.Errorf("failed to render SML chart: %w", err)
	}
	return p.Bytes()
}

// bounds pads the joint range of the series by 5%. NaN values are skipped;
// with nothing defined lo and hi stay infinite.
func bounds(series ...[]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return lo, hi
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}
