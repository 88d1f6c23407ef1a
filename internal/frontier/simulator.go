// Package frontier approximates the Markowitz efficient set by sampling random
// long-only portfolios over a return matrix.
package frontier

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/returns"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config holds simulation parameters.
type Config struct {
	Trials         int
	PeriodsPerYear int
	RiskFreeRate   float64 // annual, same basis as the expected return
	Sampler        Sampler
}

// DefaultConfig mirrors the IBEX frontier run.
func DefaultConfig() Config {
	return Config{
		Trials:         50000,
		PeriodsPerYear: 252,
		RiskFreeRate:   0.03,
		Sampler:        UniformSampler{},
	}
}

// Validate checks the parameters that do not depend on the data.
func (c Config) Validate() error {
	if c.Trials <= 0 {
		return core.Errorf(core.ErrInvalidConfiguration, "trials must be positive, got %d", c.Trials)
	}
	if c.PeriodsPerYear <= 0 {
		return core.Errorf(core.ErrInvalidConfiguration, "periods_per_year must be positive, got %d", c.PeriodsPerYear)
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return core.Errorf(core.ErrInvalidConfiguration, "risk_free_rate must be finite")
	}
	return nil
}

// Simulator evaluates portfolios against a fixed set of assets. It holds only
// read-only state and is safe for concurrent use.
type Simulator struct {
	cfg     Config
	symbols []string
	means   []float64
	cov     *mat.SymDense
}

// New validates the inputs and precomputes column means and covariance.
func New(m *returns.Matrix, cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Sampler == nil {
		cfg.Sampler = UniformSampler{}
	}
	if m == nil || m.Width() < 2 {
		width := 0
		if m != nil {
			width = m.Width()
		}
		return nil, core.Errorf(core.ErrInsufficientAssets, "got %d asset columns", width)
	}
	if valid := m.ValidRows(); valid < 2 {
		return nil, core.Errorf(core.ErrInsufficientHistory, "got %d fully populated rows", valid)
	}

	cov, err := m.Covariance()
	if err != nil {
		return nil, err
	}

	return &Simulator{
		cfg:     cfg,
		symbols: m.Symbols(),
		means:   m.Means(),
		cov:     cov,
	}, nil
}

// Symbols returns the asset order weights refer to.
func (s *Simulator) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Evaluate computes annual return, volatility and ratio for the given weights.
func (s *Simulator) Evaluate(weights []float64) (Trial, error) {
	if len(weights) != len(s.symbols) {
		return Trial{}, core.Errorf(core.ErrInvalidConfiguration,
			"got %d weights for %d assets", len(weights), len(s.symbols))
	}

	p := float64(s.cfg.PeriodsPerYear)
	w := mat.NewVecDense(len(weights), append([]float64(nil), weights...))

	ret := p * floats.Dot(weights, s.means)
	variance := p * mat.Inner(w, s.cov, w)
	vol := math.Sqrt(variance)
	if !(vol > 0) || math.IsInf(vol, 0) {
		return Trial{}, core.Errorf(core.ErrDegenerateTrial, "variance %g", variance)
	}

	return Trial{
		Weights:    w.RawVector().Data,
		Return:     ret,
		Volatility: vol,
		Sharpe:     (ret - s.cfg.RiskFreeRate) / vol,
	}, nil
}

// Run samples cfg.Trials portfolios sequentially from rng.
func (s *Simulator) Run(ctx context.Context, rng *rand.Rand) (*Result, error) {
	if rng == nil {
		return nil, core.Errorf(core.ErrInvalidConfiguration, "random source is required")
	}

	trials := make([]Trial, s.cfg.Trials)
	w := make([]float64, len(s.symbols))
	for i := range trials {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s.cfg.Sampler.Sample(rng, w)
		t, err := s.Evaluate(w)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		trials[i] = t
	}

	return s.result(trials), nil
}

// RunParallel spreads trials over workers. Trial i always draws from its own
// PCG stream seeded with (seed, i), so the output does not depend on the
// number of workers.
func (s *Simulator) RunParallel(ctx context.Context, seed uint64, workers int) (*Result, error) {
	n := s.cfg.Trials
	workers = PoolSize(workers, n)
	chunk := (n + workers - 1) / workers

	trials := make([]Trial, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		lo, hi := start, min(start+chunk, n)
		g.Go(func() error {
			pcg := rand.NewPCG(0, 0)
			rng := rand.New(pcg)
			w := make([]float64, len(s.symbols))
			for i := lo; i < hi; i++ {
				if (i-lo)%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				pcg.Seed(seed, uint64(i))
				s.cfg.Sampler.Sample(rng, w)
				t, err := s.Evaluate(w)
				if err != nil {
					return fmt.Errorf("trial %d: %w", i, err)
				}
				trials[i] = t
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.result(trials), nil
}

// PoolSize bounds a requested worker count by GOMAXPROCS and by the number
// of trials. Non-positive requests get GOMAXPROCS.
func PoolSize(workers, trials int) int {
	limit := runtime.GOMAXPROCS(0)
	if workers <= 0 || workers > limit {
		workers = limit
	}
	return max(1, min(workers, trials))
}

func (s *Simulator) result(trials []Trial) *Result {
	minVol, maxSharpe := Select(trials)
	return &Result{
		Symbols:        s.Symbols(),
		Trials:         trials,
		MinVolatility:  minVol,
		MaxSharpe:      maxSharpe,
		PeriodsPerYear: s.cfg.PeriodsPerYear,
		RiskFreeRate:   s.cfg.RiskFreeRate,
		Sampler:        s.cfg.Sampler.Name(),
	}
}

// Select returns the indices of the minimum-volatility and maximum-ratio
// trials. Ties go to the earliest trial. Returns -1, -1 for no trials.
func Select(trials []Trial) (minVol, maxSharpe int) {
	if len(trials) == 0 {
		return -1, -1
	}
	for i := 1; i < len(trials); i++ {
		if trials[i].Volatility < trials[minVol].Volatility {
			minVol = i
		}
		if trials[i].Sharpe > trials[maxSharpe].Sharpe {
			maxSharpe = i
		}
	}
	return minVol, maxSharpe
}
