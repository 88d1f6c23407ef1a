package capm

import (
	"math"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/returns"
)

// YearEnd keeps the last valid close of every calendar year per column. The
// result covers every year from the first date to the last, so a column with
// no data in a year gets NaN for it. Each row is stamped 31 December.
func YearEnd(dates []time.Time, prices [][]float64) ([]time.Time, [][]float64) {
	if len(dates) == 0 {
		return nil, nil
	}
	first, last := dates[0].Year(), dates[len(dates)-1].Year()
	width := len(prices[0])

	years := make([]time.Time, 0, last-first+1)
	values := make([][]float64, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC))
		row := make([]float64, width)
		for c := range row {
			row[c] = math.NaN()
		}
		values = append(values, row)
	}

	for r, d := range dates {
		row := values[d.Year()-first]
		for c, v := range prices[r] {
			if !math.IsNaN(v) {
				row[c] = v
			}
		}
	}
	return years, values
}

// AnnualReturns turns daily closes into calendar-year simple returns. A year
// with no close on either side is NaN; gaps are not filled.
func AnnualReturns(rows []core.PriceRow) (*returns.Matrix, error) {
	symbols, dates, prices := returns.Pivot(rows)
	if len(symbols) == 0 {
		return nil, core.ErrNoData
	}

	years, closes := YearEnd(dates, prices)
	if len(years) < 2 {
		return nil, core.Errorf(core.ErrInsufficientHistory, "prices span %d calendar year", len(years))
	}

	values := make([][]float64, 0, len(years)-1)
	for r := 1; r < len(closes); r++ {
		row := make([]float64, len(symbols))
		for c := range row {
			prev, cur := closes[r-1][c], closes[r][c]
			if math.IsNaN(prev) || math.IsNaN(cur) {
				row[c] = math.NaN()
				continue
			}
			row[c] = (cur - prev) / prev
		}
		values = append(values, row)
	}
	return returns.New(symbols, years[1:], values)
}

// GeometricAnnualized compounds the valid returns and rescales them to a
// per-year rate. Returns NaN when there is nothing to compound.
func GeometricAnnualized(r []float64, periodsPerYear int) float64 {
	gross, n := 1.0, 0
	for _, v := range r {
		if math.IsNaN(v) {
			continue
		}
		gross *= 1 + v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Pow(gross, float64(periodsPerYear)/float64(n)) - 1
}
