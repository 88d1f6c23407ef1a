package frontier

import (
	"math/rand/v2"

	"github.com/newthinker/frontier/internal/core"
)

// Sampler fills w with a long-only, fully invested weight vector.
type Sampler interface {
	Name() string
	Sample(rng *rand.Rand, w []float64)
}

// UniformSampler draws one uniform [0,1) value per asset and divides by the
// sum. The result is not uniform over the simplex: it favours balanced
// allocations over corner ones, which shapes the frontier cloud.
type UniformSampler struct{}

func (UniformSampler) Name() string { return "uniform" }

func (UniformSampler) Sample(rng *rand.Rand, w []float64) {
	for {
		var sum float64
		for i := range w {
			w[i] = rng.Float64()
			sum += w[i]
		}
		if sum > 0 {
			normalize(w, sum)
			return
		}
	}
}

// DirichletSampler draws from a flat Dirichlet distribution, which is uniform
// over the simplex, by normalising unit exponentials.
type DirichletSampler struct{}

func (DirichletSampler) Name() string { return "dirichlet" }

func (DirichletSampler) Sample(rng *rand.Rand, w []float64) {
	for {
		var sum float64
		for i := range w {
			w[i] = rng.ExpFloat64()
			sum += w[i]
		}
		if sum > 0 {
			normalize(w, sum)
			return
		}
	}
}

func normalize(w []float64, sum float64) {
	for i := range w {
		w[i] /= sum
	}
}

// SamplerByName resolves a configured sampler name. Empty means uniform.
func SamplerByName(name string) (Sampler, error) {
	switch name {
	case "", "uniform":
		return UniformSampler{}, nil
	case "dirichlet":
		return DirichletSampler{}, nil
	default:
		return nil, core.Errorf(core.ErrInvalidConfiguration, "unknown sampler: %s", name)
	}
}
