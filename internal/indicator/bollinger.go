package indicator

import "gonum.org/v1/gonum/stat"

// Bollinger holds the three bands.
type Bollinger struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// CalculateBollinger returns the period SMA with bands width sample standard
// deviations above and below it.
func CalculateBollinger(closes []float64, period int, width float64) Bollinger {
	n := len(closes)
	b := Bollinger{Upper: nanSeries(n), Middle: SMA(closes, period), Lower: nanSeries(n)}
	if period < 2 || n < period {
		return b
	}
	for i := period - 1; i < n; i++ {
		sd := stat.StdDev(closes[i-period+1:i+1], nil)
		b.Upper[i] = b.Middle[i] + width*sd
		b.Lower[i] = b.Middle[i] - width*sd
	}
	return b
}
