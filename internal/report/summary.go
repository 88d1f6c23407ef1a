// Package report turns simulation and SML results into artifacts: JSON
// summaries, trial CSVs, PNG charts and optional LLM commentary.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/frontier/internal/frontier"
)

// DefaultThreshold hides holdings at or below 0.5% in detailed compositions.
const DefaultThreshold = 0.005

// Brief compositions, used where space is short, list at most BriefLines
// holdings above BriefThreshold.
const (
	BriefThreshold = 0.01
	BriefLines     = 8
)

// Holding is one asset of a composition.
type Holding struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Portfolio is a distinguished trial with its visible composition.
type Portfolio struct {
	Label      string    `json:"label"`
	Index      int       `json:"index"`
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
	Sharpe     float64   `json:"sharpe"`
	Holdings   []Holding `json:"holdings"`
}

// Extents are the axis ranges of the trial cloud.
type Extents struct {
	VolatilityMin float64 `json:"volatility_min"`
	VolatilityMax float64 `json:"volatility_max"`
	ReturnMin     float64 `json:"return_min"`
	ReturnMax     float64 `json:"return_max"`
}

// Summary is the JSON-ready description of one run.
type Summary struct {
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	Symbols        []string  `json:"symbols"`
	From           string    `json:"from,omitempty"`
	To             string    `json:"to,omitempty"`
	ReturnKind     string    `json:"return_kind,omitempty"`
	Trials         int       `json:"trials"`
	PeriodsPerYear int       `json:"periods_per_year"`
	RiskFreeRate   float64   `json:"risk_free_rate"`
	Sampler        string    `json:"sampler"`
	Seed           uint64    `json:"seed,omitempty"`
	MinVariance    Portfolio `json:"min_variance"`
	MaxSharpe      Portfolio `json:"max_sharpe"`
	Extents        Extents   `json:"extents"`
	Commentary     string    `json:"commentary,omitempty"`
}

// Options carries run metadata that the result itself does not hold.
type Options struct {
	RunID      string
	CreatedAt  time.Time
	From, To   time.Time
	ReturnKind string
	Seed       uint64
	Threshold  float64
}

// Summarize builds the run summary.
func Summarize(res *frontier.Result, opts Options) *Summary {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	s := &Summary{
		RunID:          opts.RunID,
		CreatedAt:      opts.CreatedAt.UTC(),
		Symbols:        res.Symbols,
		ReturnKind:     opts.ReturnKind,
		Trials:         len(res.Trials),
		PeriodsPerYear: res.PeriodsPerYear,
		RiskFreeRate:   res.RiskFreeRate,
		Sampler:        res.Sampler,
		Seed:           opts.Seed,
		MinVariance:    portfolio("Minimum variance", res, res.MinVolatility, opts.Threshold),
		MaxSharpe:      portfolio("Maximum Sharpe", res, res.MaxSharpe, opts.Threshold),
	}
	if !opts.From.IsZero() {
		s.From = opts.From.Format("2006-01-02")
	}
	if !opts.To.IsZero() {
		s.To = opts.To.Format("2006-01-02")
	}
	s.Extents.VolatilityMin, s.Extents.VolatilityMax, s.Extents.ReturnMin, s.Extents.ReturnMax = res.Extents()
	return s
}

func portfolio(label string, res *frontier.Result, idx int, threshold float64) Portfolio {
	if idx < 0 || idx >= len(res.Trials) {
		return Portfolio{Label: label, Index: -1}
	}
	t := res.Trials[idx]
	return Portfolio{
		Label:      label,
		Index:      idx,
		Return:     t.Return,
		Volatility: t.Volatility,
		Sharpe:     t.Sharpe,
		Holdings:   Composition(res.Symbols, t.Weights, threshold),
	}
}

// Composition lists holdings strictly above threshold in column order.
func Composition(symbols []string, weights []float64, threshold float64) []Holding {
	var out []Holding
	for i, w := range weights {
		if i < len(symbols) && w > threshold {
			out = append(out, Holding{Symbol: symbols[i], Weight: w})
		}
	}
	return out
}

// Lines formats holdings as "SYM: 12.3%".
func (p Portfolio) Lines() []string {
	lines := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		lines[i] = fmt.Sprintf("%s: %.1f%%", h.Symbol, h.Weight*100)
	}
	return lines
}

// BriefLines lists holdings above BriefThreshold in column order, capped at
// BriefLines entries.
func (p Portfolio) BriefLines() []string {
	var lines []string
	for _, h := range p.Holdings {
		if h.Weight <= BriefThreshold {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %.1f%%", h.Symbol, h.Weight*100))
		if len(lines) == BriefLines {
			break
		}
	}
	return lines
}

// Brief renders the two distinguished portfolios with brief compositions,
// sized for chat notifications.
func (s *Summary) Brief() string {
	var b strings.Builder
	for i, p := range []Portfolio{s.MinVariance, s.MaxSharpe} {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: return %.2f%%, volatility %.2f%%, Sharpe %.3f\n",
			p.Label, p.Return*100, p.Volatility*100, p.Sharpe)
		for _, line := range p.BriefLines() {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}

// Text renders the summary for terminals and prompts.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d trials over %s", s.RunID, s.Trials, strings.Join(s.Symbols, ", "))
	if s.From != "" {
		fmt.Fprintf(&b, " (%s to %s)", s.From, s.To)
	}
	fmt.Fprintf(&b, "\nRf = %.2f%%, sampler %s, %d periods per year\n", s.RiskFreeRate*100, s.Sampler, s.PeriodsPerYear)
	for _, p := range []Portfolio{s.MinVariance, s.MaxSharpe} {
		fmt.Fprintf(&b, "\n%s: return %.2f%%, volatility %.2f%%, Sharpe %.3f\n",
			p.Label, p.Return*100, p.Volatility*100, p.Sharpe)
		for _, line := range p.Lines() {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	fmt.Fprintf(&b, "\nVolatility range %.2f%% to %.2f%%, return range %.2f%% to %.2f%%\n",
		s.Extents.VolatilityMin*100, s.Extents.VolatilityMax*100,
		s.Extents.ReturnMin*100, s.Extents.ReturnMax*100)
	return b.String()
}
