// Package returns builds the date-by-symbol return table the simulator and the
// SML analysis consume.
package returns

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Matrix is an immutable table of period-over-period returns indexed by date,
// one column per symbol. Missing observations are NaN.
type Matrix struct {
	symbols []string
	index   map[string]int
	dates   []time.Time
	data    [][]float64 // [row][col]
}

// New builds a matrix from a dense table. values is row-major and must have one
// row per date and one column per symbol.
func New(symbols []string, dates []time.Time, values [][]float64) (*Matrix, error) {
	if len(values) != len(dates) {
		return nil, core.Errorf(core.ErrInvalidConfiguration,
			"got %d rows for %d dates", len(values), len(dates))
	}

	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		if s == "" {
			return nil, core.Errorf(core.ErrInvalidConfiguration, "empty symbol at column %d", i)
		}
		if _, dup := index[s]; dup {
			return nil, core.Errorf(core.ErrInvalidConfiguration, "duplicate symbol %s", s)
		}
		index[s] = i
	}

	data := make([][]float64, len(values))
	for r, row := range values {
		if len(row) != len(symbols) {
			return nil, core.Errorf(core.ErrInvalidConfiguration,
				"row %d has %d values, want %d", r, len(row), len(symbols))
		}
		data[r] = append([]float64(nil), row...)
	}

	return &Matrix{
		symbols: append([]string(nil), symbols...),
		index:   index,
		dates:   append([]time.Time(nil), dates...),
		data:    data,
	}, nil
}

// Symbols returns the column labels in order.
func (m *Matrix) Symbols() []string {
	return append([]string(nil), m.symbols...)
}

// Dates returns the row labels in order.
func (m *Matrix) Dates() []time.Time {
	return append([]time.Time(nil), m.dates...)
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.data) }

// Width returns the number of columns.
func (m *Matrix) Width() int { return len(m.symbols) }

// At returns the value at row r, column c.
func (m *Matrix) At(r, c int) float64 { return m.data[r][c] }

// Column returns a copy of the series for symbol.
func (m *Matrix) Column(symbol string) ([]float64, bool) {
	c, ok := m.index[symbol]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(m.data))
	for r := range m.data {
		out[r] = m.data[r][c]
	}
	return out, true
}

// ValidRows counts rows where every column is present.
func (m *Matrix) ValidRows() int {
	n := 0
	for _, row := range m.data {
		if complete(row) {
			n++
		}
	}
	return n
}

// DropIncomplete returns a new matrix with only fully populated rows.
func (m *Matrix) DropIncomplete() *Matrix {
	out := &Matrix{symbols: m.symbols, index: m.index}
	for r, row := range m.data {
		if complete(row) {
			out.dates = append(out.dates, m.dates[r])
			out.data = append(out.data, append([]float64(nil), row...))
		}
	}
	return out
}

// Select returns a new matrix restricted to the given symbols, in that order.
func (m *Matrix) Select(symbols ...string) (*Matrix, error) {
	cols := make([]int, len(symbols))
	for i, s := range symbols {
		c, ok := m.index[s]
		if !ok {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s", s))
		}
		cols[i] = c
	}

	values := make([][]float64, len(m.data))
	for r, row := range m.data {
		values[r] = make([]float64, len(cols))
		for i, c := range cols {
			values[r][i] = row[c]
		}
	}
	return New(symbols, m.dates, values)
}

// Means returns the column-wise mean over each column's present values.
// A column with no present values yields NaN.
func (m *Matrix) Means() []float64 {
	means := make([]float64, len(m.symbols))
	for c := range m.symbols {
		vals := make([]float64, 0, len(m.data))
		for _, row := range m.data {
			if v := row[c]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			means[c] = math.NaN()
			continue
		}
		means[c] = stat.Mean(vals, nil)
	}
	return means
}

// Covariance returns the sample covariance matrix (n-1 denominator). Each entry
// uses only the rows where both columns are present.
func (m *Matrix) Covariance() (*mat.SymDense, error) {
	n := len(m.symbols)
	cov := mat.NewSymDense(n, nil)
	x := make([]float64, 0, len(m.data))
	y := make([]float64, 0, len(m.data))

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			x, y = x[:0], y[:0]
			for _, row := range m.data {
				a, b := row[i], row[j]
				if math.IsNaN(a) || math.IsNaN(b) {
					continue
				}
				x = append(x, a)
				y = append(y, b)
			}
			if len(x) < 2 {
				return nil, core.Errorf(core.ErrInsufficientHistory,
					"%s/%s have %d joint observations", m.symbols[i], m.symbols[j], len(x))
			}
			cov.SetSym(i, j, stat.Covariance(x, y, nil))
		}
	}
	return cov, nil
}

func complete(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Options controls how prices are turned into returns.
type Options struct {
	Kind        core.ReturnKind
	FillForward bool // carry the last close over gaps before differencing
}

// FromPrices pivots (symbol, date, close) rows into a date-by-symbol price
// table and differences it. Rows with a non-positive close count as missing.
// When a symbol has two rows for the same date the later one wins.
func FromPrices(rows []core.PriceRow, opts Options) (*Matrix, error) {
	if opts.Kind == "" {
		opts.Kind = core.ReturnSimple
	}
	if !opts.Kind.Valid() {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "unknown return kind %q", opts.Kind)
	}

	symbols, dates, prices := Pivot(rows)
	if len(symbols) == 0 {
		return nil, core.ErrNoData
	}
	if opts.FillForward {
		fillForward(prices)
	}

	var values [][]float64
	var outDates []time.Time
	for r := 1; r < len(prices); r++ {
		row := make([]float64, len(symbols))
		for c := range symbols {
			row[c] = change(prices[r-1][c], prices[r][c], opts.Kind)
		}
		values = append(values, row)
		outDates = append(outDates, dates[r])
	}

	return New(symbols, outDates, values)
}

// Pivot turns price rows into sorted symbols, ascending dates and a dense
// close table with NaN for missing observations.
func Pivot(rows []core.PriceRow) ([]string, []time.Time, [][]float64) {
	bySymbol := make(map[string]struct{})
	byDate := make(map[time.Time]map[string]float64)

	for _, r := range rows {
		if r.Symbol == "" || r.Date.IsZero() {
			continue
		}
		day := core.Day(r.Date)
		bySymbol[r.Symbol] = struct{}{}
		if byDate[day] == nil {
			byDate[day] = make(map[string]float64)
		}
		if r.Close > 0 && !math.IsInf(r.Close, 0) {
			byDate[day][r.Symbol] = r.Close
		} else {
			byDate[day][r.Symbol] = math.NaN()
		}
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	prices := make([][]float64, len(dates))
	for r, d := range dates {
		prices[r] = make([]float64, len(symbols))
		for c, s := range symbols {
			v, ok := byDate[d][s]
			if !ok {
				v = math.NaN()
			}
			prices[r][c] = v
		}
	}
	return symbols, dates, prices
}

func fillForward(prices [][]float64) {
	for r := 1; r < len(prices); r++ {
		for c := range prices[r] {
			if math.IsNaN(prices[r][c]) {
				prices[r][c] = prices[r-1][c]
			}
		}
	}
}

func change(prev, cur float64, kind core.ReturnKind) float64 {
	if math.IsNaN(prev) || math.IsNaN(cur) {
		return math.NaN()
	}
	if kind == core.ReturnLog {
		return math.Log(cur / prev)
	}
	return (cur - prev) / prev
}
