// Package capm fits the Security Market Line over annual returns and flags
// assets that sit above or below it.
package capm

import (
	"math"
	"sort"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/returns"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Class places an asset relative to the market mean and the SML.
type Class string

const (
	ClassTP Class = "TP" // above market mean, on or above the SML
	ClassFP Class = "FP" // above market mean, below the SML
	ClassFN Class = "FN" // below market mean, on or above the SML
	ClassTN Class = "TN" // below both
)

// MinObservations is the fewest joint annual returns a beta is fitted on.
const MinObservations = 3

// Config holds SML parameters.
type Config struct {
	Market       string  // column holding the market index
	RiskFreeRate float64 // annual
	MinYears     int     // minimum valid market returns
}

// Fit is one excess-return regression (Ri - rf) = alpha + beta (Rm - rf).
type Fit struct {
	Beta  float64 `json:"beta"`
	Alpha float64 `json:"alpha"`
	R2    float64 `json:"r2"`
	NObs  int     `json:"nobs"`
}

// Point is one asset on the SML chart.
type Point struct {
	Fit
	Symbol     string  `json:"symbol"`
	Expected   float64 `json:"expected"` // geometric annual return
	CAPM       float64 `json:"capm"`     // rf + beta (E[Rm] - rf)
	Mispricing float64 `json:"mispricing"`
	Class      Class   `json:"class"`
}

// Analysis is the fitted SML plus the classified assets, sorted by beta.
type Analysis struct {
	Market        string   `json:"market"`
	RiskFreeRate  float64  `json:"risk_free_rate"`
	MarketReturn  float64  `json:"market_return"`
	MarketPremium float64  `json:"market_premium"`
	Points        []Point  `json:"points"`
	Skipped       []string `json:"skipped,omitempty"`
}

// EstimateBeta regresses asset excess returns on market excess returns over
// the rows where both are present. ok is false when fewer than
// MinObservations pairs remain.
func EstimateBeta(asset, market []float64, rf float64) (fit Fit, ok bool) {
	x, y := joint(market, asset)
	fit.NObs = len(x)
	if fit.NObs < MinObservations {
		return fit, false
	}
	floats.AddConst(-rf, x)
	floats.AddConst(-rf, y)

	fit.Alpha, fit.Beta = stat.LinearRegression(x, y, nil, false)
	fit.R2 = stat.RSquared(x, y, nil, fit.Alpha, fit.Beta)
	return fit, true
}

// Analyze fits every non-market column of annual against the market column.
func Analyze(annual *returns.Matrix, cfg Config) (*Analysis, error) {
	if cfg.MinYears <= 0 {
		cfg.MinYears = MinObservations
	}
	rm, ok := annual.Column(cfg.Market)
	if !ok {
		return nil, core.Errorf(core.ErrSymbolNotFound, "market %s", cfg.Market)
	}

	valid := 0
	for _, v := range rm {
		if !math.IsNaN(v) {
			valid++
		}
	}
	marketReturn := GeometricAnnualized(rm, 1)
	if valid < cfg.MinYears || math.IsNaN(marketReturn) {
		return nil, core.Errorf(core.ErrInsufficientHistory,
			"market %s has %d annual returns, want %d", cfg.Market, valid, cfg.MinYears)
	}

	a := &Analysis{
		Market:        cfg.Market,
		RiskFreeRate:  cfg.RiskFreeRate,
		MarketReturn:  marketReturn,
		MarketPremium: marketReturn - cfg.RiskFreeRate,
	}

	for _, sym := range annual.Symbols() {
		if sym == cfg.Market {
			continue
		}
		ri, _ := annual.Column(sym)
		fit, ok := EstimateBeta(ri, rm, cfg.RiskFreeRate)
		if !ok {
			a.Skipped = append(a.Skipped, sym)
			continue
		}
		_, paired := joint(rm, ri)
		p := Point{
			Symbol:   sym,
			Fit:      fit,
			Expected: GeometricAnnualized(paired, 1),
			CAPM:     cfg.RiskFreeRate + fit.Beta*a.MarketPremium,
		}
		p.Mispricing = p.Expected - p.CAPM
		p.Class = Classify(p.Expected, marketReturn, p.CAPM)
		a.Points = append(a.Points, p)
	}

	if len(a.Points) == 0 {
		return nil, core.Errorf(core.ErrInsufficientHistory, "no asset has %d joint annual returns", MinObservations)
	}
	sort.SliceStable(a.Points, func(i, j int) bool { return a.Points[i].Beta < a.Points[j].Beta })
	return a, nil
}

// Classify compares an asset's return to the market mean and its SML value.
func Classify(expected, marketReturn, capm float64) Class {
	aboveMean := expected >= marketReturn
	aboveLine := expected >= capm
	switch {
	case aboveMean && aboveLine:
		return ClassTP
	case aboveMean:
		return ClassFP
	case aboveLine:
		return ClassFN
	default:
		return ClassTN
	}
}

// Counts tallies points per class.
func (a *Analysis) Counts() map[Class]int {
	counts := map[Class]int{ClassTP: 0, ClassFP: 0, ClassFN: 0, ClassTN: 0}
	for _, p := range a.Points {
		counts[p.Class]++
	}
	return counts
}

// LinePoint is one sample of the SML.
type LinePoint struct {
	Beta   float64 `json:"beta"`
	Return float64 `json:"return"`
}

// Line samples the SML at n evenly spaced betas from 0 to
// max(1.5, highest beta + 0.2).
func (a *Analysis) Line(n int) []LinePoint {
	if n < 2 {
		n = 2
	}
	hi := 1.5
	for _, p := range a.Points {
		hi = math.Max(hi, p.Beta+0.2)
	}
	betas := floats.Span(make([]float64, n), 0, hi)
	line := make([]LinePoint, n)
	for i, b := range betas {
		line[i] = LinePoint{Beta: b, Return: a.RiskFreeRate + a.MarketPremium*b}
	}
	return line
}

// joint returns the pairs of a and b where both are present.
func joint(a, b []float64) (x, y []float64) {
	for i := range a {
		if i >= len(b) || math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}
