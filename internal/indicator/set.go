package indicator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newthinker/frontier/internal/core"
)

// Params sets every window used by Compute.
type Params struct {
	SMAPeriods      []int   `json:"sma_periods"`
	RSIPeriod       int     `json:"rsi_period"`
	MACDFast        int     `json:"macd_fast"`
	MACDSlow        int     `json:"macd_slow"`
	MACDSignal      int     `json:"macd_signal"`
	MFIPeriod       int     `json:"mfi_period"`
	StochK          int     `json:"stoch_k"`
	StochD          int     `json:"stoch_d"`
	BollingerPeriod int     `json:"bollinger_period"`
	BollingerWidth  float64 `json:"bollinger_width"`
}

// DefaultParams returns SMA 20/50/200, RSI 14, MACD 12/26/9, MFI 14,
// stochastic 14/3 and Bollinger 20/2.
func DefaultParams() Params {
	return Params{
		SMAPeriods:      []int{20, 50, 200},
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		MFIPeriod:       14,
		StochK:          14,
		StochD:          3,
		BollingerPeriod: 20,
		BollingerWidth:  2,
	}
}

// Validate checks that every window can be computed.
func (p Params) Validate() error {
	for _, n := range p.SMAPeriods {
		if n < 2 {
			return core.Errorf(core.ErrInvalidRequest, "sma period must be at least 2, got %d", n)
		}
	}
	windows := []struct {
		name string
		n    int
	}{
		{"rsi_period", p.RSIPeriod},
		{"mfi_period", p.MFIPeriod},
		{"stoch_k", p.StochK},
		{"stoch_d", p.StochD},
		{"bollinger_period", p.BollingerPeriod},
	}
	for _, w := range windows {
		if w.n < 2 {
			return core.Errorf(core.ErrInvalidRequest, "%s must be at least 2, got %d", w.name, w.n)
		}
	}
	if p.MACDFast < 1 || p.MACDSignal < 1 || p.MACDFast >= p.MACDSlow {
		return core.Errorf(core.ErrInvalidRequest, "macd needs 1 <= fast < slow and signal >= 1, got %d/%d/%d",
			p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	if p.BollingerWidth <= 0 {
		return core.Errorf(core.ErrInvalidRequest, "bollinger_width must be positive, got %f", p.BollingerWidth)
	}
	return nil
}

// Set is every indicator computed for one symbol, aligned with Dates.
type Set struct {
	Symbol     string
	Params     Params
	Dates      []time.Time
	Close      []float64
	SMA        map[int][]float64
	RSI        []float64
	MACD       MACD
	MFI        []float64
	Stochastic Stochastic
	Bollinger  Bollinger
}

// Compute calculates the indicator set over bars, which must belong to one
// symbol and be ordered oldest first.
func Compute(bars []core.OHLCV, p Params) (*Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no bars to analyse")
	}

	n := len(bars)
	s := &Set{Symbol: bars[0].Symbol, Params: p, Dates: make([]time.Time, n), Close: make([]float64, n)}
	high := make([]float64, n)
	low := make([]float64, n)
	volume := make([]int64, n)
	for i, b := range bars {
		if b.Symbol != s.Symbol {
			return nil, core.Errorf(core.ErrInvalidRequest, "bars mix %s and %s", s.Symbol, b.Symbol)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return nil, core.Errorf(core.ErrInvalidRequest, "bars for %s out of order at %s", s.Symbol, b.Time.Format("2006-01-02"))
		}
		s.Dates[i] = b.Time
		s.Close[i] = b.Close
		high[i], low[i], volume[i] = b.High, b.Low, b.Volume
	}

	s.SMA = make(map[int][]float64, len(p.SMAPeriods))
	for _, period := range p.SMAPeriods {
		s.SMA[period] = SMA(s.Close, period)
	}
	s.RSI = RSI(s.Close, p.RSIPeriod)
	s.MACD = CalculateMACD(s.Close, p.MACDFast, p.MACDSlow, p.MACDSignal)
	s.MFI = MFI(high, low, s.Close, volume, p.MFIPeriod)
	s.Stochastic = CalculateStochastic(high, low, s.Close, p.StochK, p.StochD)
	s.Bollinger = CalculateBollinger(s.Close, p.BollingerPeriod, p.BollingerWidth)
	return s, nil
}

// Column is one named series of a Set.
type Column struct {
	Name   string
	Values []float64
}

// Columns lists the series in a stable order: close, SMAs by period, RSI,
// MACD, MFI, stochastic and Bollinger.
func (s *Set) Columns() []Column {
	periods := make([]int, 0, len(s.SMA))
	for p := range s.SMA {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	cols := []Column{{"close", s.Close}}
	for _, p := range periods {
		cols = append(cols, Column{fmt.Sprintf("sma_%d", p), s.SMA[p]})
	}
	return append(cols,
		Column{"rsi", s.RSI},
		Column{"macd", s.MACD.Line},
		Column{"macd_signal", s.MACD.Signal},
		Column{"macd_hist", s.MACD.Histogram},
		Column{"mfi", s.MFI},
		Column{"stoch_k", s.Stochastic.K},
		Column{"stoch_d", s.Stochastic.D},
		Column{"bb_upper", s.Bollinger.Upper},
		Column{"bb_middle", s.Bollinger.Middle},
		Column{"bb_lower", s.Bollinger.Lower},
	)
}

// Snapshot is the last bar's indicator values. Values still in their
// warm-up window are nil.
type Snapshot struct {
	Symbol string              `json:"symbol"`
	Date   string              `json:"date"`
	Bars   int                 `json:"bars"`
	Values map[string]*float64 `json:"values"`
}

// Latest returns the values at the last bar.
func (s *Set) Latest() Snapshot {
	last := len(s.Dates) - 1
	snap := Snapshot{Symbol: s.Symbol, Bars: len(s.Dates), Values: make(map[string]*float64)}
	if last < 0 {
		return snap
	}
	snap.Date = s.Dates[last].Format("2006-01-02")
	for _, c := range s.Columns() {
		v := c.Values[last]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			snap.Values[c.Name] = nil
			continue
		}
		snap.Values[c.Name] = &v
	}
	return snap
}
