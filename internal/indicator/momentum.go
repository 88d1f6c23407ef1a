package indicator

import "math"

// RSI calculates the relative strength index using simple averages of gains
// and losses over period changes. The first value is at index period.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period < 2 || len(closes) <= period {
		return out
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}
	up, down := SMA(gains, period), SMA(losses, period)
	for i := range up {
		out[i+1] = ratioIndex(up[i], down[i])
	}
	return out
}

// MACD is the moving average convergence/divergence triple.
type MACD struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateMACD returns EMA(fast) - EMA(slow) with its EMA(signal) line.
func CalculateMACD(closes []float64, fast, slow, signal int) MACD {
	ef, es := EMA(closes, fast), EMA(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = ef[i] - es[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return MACD{Line: line, Signal: sig, Histogram: hist}
}

// MFI calculates the money flow index. The first bar counts as neither
// positive nor negative flow, so the first value is at index period-1.
func MFI(high, low, close []float64, volume []int64, period int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if len(high) != n || len(low) != n || len(volume) != n || n < period {
		return out
	}
	pos := make([]float64, n)
	neg := make([]float64, n)
	prev := math.NaN()
	for i := range close {
		tp := (high[i] + low[i] + close[i]) / 3
		flow := tp * float64(volume[i])
		switch {
		case tp > prev:
			pos[i] = flow
		case tp < prev:
			neg[i] = flow
		}
		prev = tp
	}
	up, down := rollingSum(pos, period), rollingSum(neg, period)
	for i := range out {
		out[i] = ratioIndex(up[i], down[i])
	}
	return out
}
