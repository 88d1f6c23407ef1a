package frontier

// Trial is one sampled portfolio.
type Trial struct {
	Weights    []float64 `json:"weights"`
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
	Sharpe     float64   `json:"sharpe"`
}

// Result is the sampled frontier cloud plus the two distinguished portfolios.
type Result struct {
	Symbols        []string `json:"symbols"`
	Trials         []Trial  `json:"trials"`
	MinVolatility  int      `json:"min_volatility_index"`
	MaxSharpe      int      `json:"max_sharpe_index"`
	PeriodsPerYear int      `json:"periods_per_year"`
	RiskFreeRate   float64  `json:"risk_free_rate"`
	Sampler        string   `json:"sampler"`
}

// MinVariance returns the trial with the lowest volatility.
func (r *Result) MinVariance() Trial {
	return r.Trials[r.MinVolatility]
}

// Optimal returns the trial with the highest Sharpe-like ratio.
func (r *Result) Optimal() Trial {
	return r.Trials[r.MaxSharpe]
}

// Extents returns the min/max volatility and return across all trials.
func (r *Result) Extents() (volMin, volMax, retMin, retMax float64) {
	if len(r.Trials) == 0 {
		return
	}
	volMin, volMax = r.Trials[0].Volatility, r.Trials[0].Volatility
	retMin, retMax = r.Trials[0].Return, r.Trials[0].Return
	for _, t := range r.Trials[1:] {
		volMin = min(volMin, t.Volatility)
		volMax = max(volMax, t.Volatility)
		retMin = min(retMin, t.Return)
		retMax = max(retMax, t.Return)
	}
	return
}
