// Package indicator computes technical indicators over daily bars. Every
// series has the length of its input and holds NaN where the window has not
// filled yet.
package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// align copies a TA-Lib output, whose first lookback entries are zero, into a
// NaN-padded series.
func align(out []float64, lookback int) []float64 {
	res := nanSeries(len(out))
	for i := lookback; i < len(out); i++ {
		res[i] = out[i]
	}
	return res
}

// SMA calculates the simple moving average over period values.
func SMA(prices []float64, period int) []float64 {
	if period < 2 || len(prices) < period {
		return nanSeries(len(prices))
	}
	return align(talib.Sma(prices, period), period-1)
}

// EMA calculates the exponential moving average with multiplier
// 2/(period+1), seeded with the first price so every point is defined.
func EMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) == 0 {
		return nanSeries(len(prices))
	}
	result := make([]float64, len(prices))
	multiplier := 2.0 / float64(period+1)

	ema := prices[0]
	result[0] = ema
	for i := 1; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result[i] = ema
	}
	return result
}

// rollingSum sums values over period, NaN until the window fills.
func rollingSum(values []float64, period int) []float64 {
	if period < 2 || len(values) < period {
		return nanSeries(len(values))
	}
	return align(talib.Sum(values, period), period-1)
}

// ratioIndex maps up/down totals to a 0..100 oscillator. Flat windows sit at
// the midpoint.
func ratioIndex(up, down float64) float64 {
	switch {
	case math.IsNaN(up) || math.IsNaN(down):
		return math.NaN()
	case down == 0 && up == 0:
		return 50
	case down == 0:
		return 100
	}
	return 100 - 100/(1+up/down)
}
