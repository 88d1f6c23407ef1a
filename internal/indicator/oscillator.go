package indicator

import talib "github.com/markcheno/go-talib"

// Stochastic is the %K/%D oscillator pair.
type Stochastic struct {
	K []float64
	D []float64
}

// CalculateStochastic places each close within the high-low range of the last
// kPeriod bars (%K) and smooths it over dPeriod bars (%D). A flat range maps
// to 50.
func CalculateStochastic(high, low, close []float64, kPeriod, dPeriod int) Stochastic {
	n := len(close)
	res := Stochastic{K: nanSeries(n), D: nanSeries(n)}
	if kPeriod < 2 || len(high) != n || len(low) != n || n < kPeriod {
		return res
	}
	highest := align(talib.Max(high, kPeriod), kPeriod-1)
	lowest := align(talib.Min(low, kPeriod), kPeriod-1)
	for i := kPeriod - 1; i < n; i++ {
		span := highest[i] - lowest[i]
		if span == 0 {
			res.K[i] = 50
			continue
		}
		res.K[i] = 100 * (close[i] - lowest[i]) / span
	}

	d := SMA(res.K[kPeriod-1:], dPeriod)
	copy(res.D[kPeriod-1:], d)
	return res
}
