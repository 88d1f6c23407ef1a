package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/frontier/internal/core"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func assertSeries(t *testing.T, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d values, got %d", name, len(want), len(got))
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("%s[%d] = %f, want NaN", name, i, got[i])
			}
			continue
		}
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("%s[%d] = %f, want %f", name, i, got[i], want[i])
		}
	}
}

var nan = math.NaN()

func TestSMA_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}
	assertSeries(t, "sma", SMA(prices, 3), []float64{nan, nan, 11, 12, 13, 14})
}

func TestSMA_NotEnoughData(t *testing.T) {
	assertSeries(t, "sma", SMA([]float64{10, 11}, 5), []float64{nan, nan})
	assertSeries(t, "sma", SMA([]float64{10, 11}, 1), []float64{nan, nan})
}

func TestEMA_SeededWithFirstPrice(t *testing.T) {
	assertSeries(t, "ema", EMA([]float64{10, 11, 12}, 3), []float64{10, 10.5, 11.25})
	if got := EMA(nil, 3); len(got) != 0 {
		t.Errorf("expected empty EMA, got %v", got)
	}
}

func TestRSI(t *testing.T) {
	alternating := []float64{1, 2, 1, 2, 1}
	assertSeries(t, "rsi", RSI(alternating, 2), []float64{nan, nan, 50, 50, 50})

	rising := []float64{1, 2, 3, 4, 5}
	assertSeries(t, "rsi", RSI(rising, 3), []float64{nan, nan, nan, 100, 100})

	falling := []float64{5, 4, 3, 2}
	assertSeries(t, "rsi", RSI(falling, 2), []float64{nan, nan, 0, 0})

	// two gains of 2 against one loss of 1 over three changes
	mixed := []float64{10, 12, 11, 13}
	want := 100 - 100/(1+(4.0/3)/(1.0/3))
	assertSeries(t, "rsi", RSI(mixed, 3), []float64{nan, nan, nan, want})
}

func TestCalculateMACD(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5}
	m := CalculateMACD(flat, 2, 4, 2)
	assertSeries(t, "macd", m.Line, []float64{0, 0, 0, 0, 0})
	assertSeries(t, "hist", m.Histogram, []float64{0, 0, 0, 0, 0})

	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	m = CalculateMACD(rising, 2, 4, 3)
	for i := 1; i < len(rising); i++ {
		if m.Line[i] <= 0 {
			t.Errorf("fast EMA should lead in an uptrend, macd[%d] = %f", i, m.Line[i])
		}
		if !almostEqual(m.Histogram[i], m.Line[i]-m.Signal[i], 1e-12) {
			t.Errorf("histogram[%d] is not line minus signal", i)
		}
	}
}

func TestMFI(t *testing.T) {
	high := []float64{11, 12, 13, 14}
	low := []float64{9, 10, 11, 12}
	closes := []float64{10, 11, 12, 13}
	volume := []int64{100, 100, 100, 100}
	assertSeries(t, "mfi", MFI(high, low, closes, volume, 3), []float64{nan, nan, 100, 100})

	// typical prices 10, 11, 10, 11: two up flows of 11*100, one down of 10*50
	high = []float64{11, 12, 11, 12}
	low = []float64{9, 10, 9, 10}
	closes = []float64{10, 11, 10, 11}
	volume = []int64{100, 100, 50, 100}
	up, down := 2*11.0*100, 10.0*50
	last := 100 - 100/(1+up/down)
	got := MFI(high, low, closes, volume, 3)
	if !almostEqual(got[3], last, 1e-9) {
		t.Errorf("mfi[3] = %f, want %f", got[3], last)
	}

	assertSeries(t, "mfi", MFI(high, low, closes, volume[:2], 3), []float64{nan, nan, nan, nan})
}

func TestCalculateStochastic(t *testing.T) {
	high := []float64{10, 11, 12, 13, 14}
	low := []float64{8, 9, 10, 11, 12}
	closes := []float64{10, 11, 12, 13, 14}
	s := CalculateStochastic(high, low, closes, 3, 2)
	assertSeries(t, "k", s.K, []float64{nan, nan, 100, 100, 100})
	assertSeries(t, "d", s.D, []float64{nan, nan, nan, 100, 100})

	flat := []float64{5, 5, 5}
	s = CalculateStochastic(flat, flat, flat, 2, 2)
	assertSeries(t, "k", s.K, []float64{nan, 50, 50})
}

func TestCalculateBollinger(t *testing.T) {
	b := CalculateBollinger([]float64{1, 2, 3, 3}, 3, 2)
	assertSeries(t, "middle", b.Middle, []float64{nan, nan, 2, 8.0 / 3})
	assertSeries(t, "upper", b.Upper[:3], []float64{nan, nan, 4})
	assertSeries(t, "lower", b.Lower[:3], []float64{nan, nan, 0})
	if !(b.Upper[3] > b.Middle[3] && b.Lower[3] < b.Middle[3]) {
		t.Error("bands should straddle the middle")
	}

	flat := CalculateBollinger([]float64{4, 4, 4}, 2, 2)
	assertSeries(t, "upper", flat.Upper, []float64{nan, 4, 4})
}

func bars(symbol string, n int) []core.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.OHLCV, n)
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/5)
		out[i] = core.OHLCV{
			Symbol: symbol, Interval: "1d",
			Open: c, High: c + 1, Low: c - 1, Close: c,
			Volume: int64(1000 + i), Time: start.AddDate(0, 0, i),
		}
	}
	return out
}

func TestCompute(t *testing.T) {
	set, err := Compute(bars("BBVA.MC", 60), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Symbol != "BBVA.MC" || len(set.Dates) != 60 {
		t.Fatalf("unexpected set %s with %d dates", set.Symbol, len(set.Dates))
	}

	cols := set.Columns()
	if cols[0].Name != "close" || cols[1].Name != "sma_20" || cols[3].Name != "sma_200" {
		t.Errorf("unexpected column order: %s %s %s", cols[0].Name, cols[1].Name, cols[3].Name)
	}
	for _, c := range cols {
		if len(c.Values) != 60 {
			t.Errorf("column %s has %d values", c.Name, len(c.Values))
		}
	}

	snap := set.Latest()
	if snap.Date != "2024-02-29" || snap.Bars != 60 {
		t.Errorf("unexpected snapshot %s / %d", snap.Date, snap.Bars)
	}
	if snap.Values["sma_200"] != nil {
		t.Error("sma_200 should still be warming up after 60 bars")
	}
	for _, name := range []string{"sma_20", "sma_50", "rsi", "macd", "mfi", "stoch_k", "stoch_d", "bb_upper"} {
		v := snap.Values[name]
		if v == nil {
			t.Errorf("expected %s to be defined", name)
			continue
		}
		if (name == "rsi" || name == "mfi" || name == "stoch_k") && (*v < 0 || *v > 100) {
			t.Errorf("%s out of range: %f", name, *v)
		}
	}
}

func TestCompute_Rejects(t *testing.T) {
	mixed := bars("A", 3)
	mixed[1].Symbol = "B"

	unordered := bars("A", 3)
	unordered[2].Time = unordered[0].Time

	badParams := DefaultParams()
	badParams.MACDFast = 30

	tests := []struct {
		name   string
		bars   []core.OHLCV
		params Params
		want   error
	}{
		{"empty", nil, DefaultParams(), core.ErrNoData},
		{"mixed symbols", mixed, DefaultParams(), core.ErrInvalidRequest},
		{"out of order", unordered, DefaultParams(), core.ErrInvalidRequest},
		{"fast not below slow", bars("A", 3), badParams, core.ErrInvalidRequest},
		{"sma period one", bars("A", 3), Params{SMAPeriods: []int{1}}, core.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compute(tt.bars, tt.params); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
