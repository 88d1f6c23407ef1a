package api

import (
	"encoding/json"
	"io"
	"runtime"
	"time"

	"github.com/newthinker/frontier/internal/app"
	"github.com/newthinker/frontier/internal/core"
	"github.com/newthinker/frontier/internal/frontier"
)

const (
	dateLayout = "2006-01-02"
	maxBody    = 1 << 20
	// MaxTrials caps a single API simulation.
	MaxTrials = 1_000_000
	// MaxIndicatorSymbols caps a single indicators request.
	MaxIndicatorSymbols = 50
)

// FrontierBody is the request body for starting a simulation. Omitted fields
// take the configured defaults.
type FrontierBody struct {
	Symbols        []string `json:"symbols"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	ReturnKind     string   `json:"return_kind"`
	FillForward    *bool    `json:"fill_forward"`
	Trials         *int     `json:"trials"`
	PeriodsPerYear *int     `json:"periods_per_year"`
	RiskFreeRate   *float64 `json:"risk_free_rate"`
	Sampler        string   `json:"sampler"`
	Workers        *int     `json:"workers"`
	Seed           *uint64  `json:"seed"`
	Commentary     *bool    `json:"commentary"`
}

// Request merges the body over defaults and checks what can be checked
// without touching the warehouse.
func (b FrontierBody) Request(defaults app.Request) (app.Request, error) {
	req := defaults
	if len(b.Symbols) > 0 {
		req.Symbols = b.Symbols
	}
	var err error
	if req.From, req.To, err = dateRange(b.From, b.To, defaults.From, defaults.To); err != nil {
		return req, err
	}
	if b.ReturnKind != "" {
		req.ReturnKind = core.ReturnKind(b.ReturnKind)
	}
	setIf(&req.FillForward, b.FillForward)
	setIf(&req.Trials, b.Trials)
	setIf(&req.PeriodsPerYear, b.PeriodsPerYear)
	setIf(&req.RiskFreeRate, b.RiskFreeRate)
	setIf(&req.Workers, b.Workers)
	setIf(&req.Seed, b.Seed)
	setIf(&req.Commentary, b.Commentary)
	if b.Sampler != "" {
		req.Sampler = b.Sampler
	}

	if req.ReturnKind != "" && !req.ReturnKind.Valid() {
		return req, core.Errorf(core.ErrInvalidRequest, "unknown return_kind %q", req.ReturnKind)
	}
	if req.Trials > MaxTrials {
		return req, core.Errorf(core.ErrInvalidRequest, "trials above %d", MaxTrials)
	}
	if req.Workers < 0 || req.Workers > runtime.NumCPU() {
		return req, core.Errorf(core.ErrInvalidRequest, "workers must be between 0 and %d", runtime.NumCPU())
	}
	sampler, err := frontier.SamplerByName(req.Sampler)
	if err != nil {
		return req, err
	}
	if err := (frontier.Config{
		Trials:         req.Trials,
		PeriodsPerYear: req.PeriodsPerYear,
		RiskFreeRate:   req.RiskFreeRate,
		Sampler:        sampler,
	}).Validate(); err != nil {
		return req, err
	}
	if distinct(req.Symbols) < 2 {
		return req, core.Errorf(core.ErrInsufficientAssets, "need at least 2 symbols")
	}
	return req, nil
}

// SMLBody is the request body for an SML analysis.
type SMLBody struct {
	Symbols      []string `json:"symbols"`
	Market       string   `json:"market"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	RiskFreeRate *float64 `json:"risk_free_rate"`
	MinYears     *int     `json:"min_years"`
	Commentary   *bool    `json:"commentary"`
}

// Request merges the body over defaults.
func (b SMLBody) Request(defaults app.SMLRequest) (app.SMLRequest, error) {
	req := defaults
	if len(b.Symbols) > 0 {
		req.Symbols = b.Symbols
	}
	if b.Market != "" {
		req.Market = b.Market
	}
	var err error
	if req.From, req.To, err = dateRange(b.From, b.To, defaults.From, defaults.To); err != nil {
		return req, err
	}
	setIf(&req.RiskFreeRate, b.RiskFreeRate)
	setIf(&req.MinYears, b.MinYears)
	setIf(&req.Commentary, b.Commentary)

	if len(req.Symbols) == 0 {
		return req, core.Errorf(core.ErrInsufficientAssets, "no symbols given")
	}
	if req.Market == "" {
		return req, core.Errorf(core.ErrInvalidRequest, "market is required")
	}
	return req, nil
}

// IndicatorsBody is the request body for a technical indicator run. Omitted
// windows take the configured defaults.
type IndicatorsBody struct {
	Symbols         []string `json:"symbols"`
	From            string   `json:"from"`
	To              string   `json:"to"`
	SMAPeriods      []int    `json:"sma_periods"`
	RSIPeriod       *int     `json:"rsi_period"`
	MACDFast        *int     `json:"macd_fast"`
	MACDSlow        *int     `json:"macd_slow"`
	MACDSignal      *int     `json:"macd_signal"`
	MFIPeriod       *int     `json:"mfi_period"`
	StochK          *int     `json:"stoch_k"`
	StochD          *int     `json:"stoch_d"`
	BollingerPeriod *int     `json:"bollinger_period"`
	BollingerWidth  *float64 `json:"bollinger_width"`
}

// Request merges the body over defaults.
func (b IndicatorsBody) Request(defaults app.IndicatorRequest) (app.IndicatorRequest, error) {
	req := defaults
	if len(b.Symbols) > 0 {
		req.Symbols = b.Symbols
	}
	var err error
	if req.From, req.To, err = dateRange(b.From, b.To, defaults.From, defaults.To); err != nil {
		return req, err
	}
	if len(b.SMAPeriods) > 0 {
		req.Params.SMAPeriods = b.SMAPeriods
	}
	setIf(&req.Params.RSIPeriod, b.RSIPeriod)
	setIf(&req.Params.MACDFast, b.MACDFast)
	setIf(&req.Params.MACDSlow, b.MACDSlow)
	setIf(&req.Params.MACDSignal, b.MACDSignal)
	setIf(&req.Params.MFIPeriod, b.MFIPeriod)
	setIf(&req.Params.StochK, b.StochK)
	setIf(&req.Params.StochD, b.StochD)
	setIf(&req.Params.BollingerPeriod, b.BollingerPeriod)
	setIf(&req.Params.BollingerWidth, b.BollingerWidth)

	switch n := distinct(req.Symbols); {
	case n == 0:
		return req, core.Errorf(core.ErrInsufficientAssets, "no symbols given")
	case n > MaxIndicatorSymbols:
		return req, core.Errorf(core.ErrInvalidRequest, "at most %d symbols per request", MaxIndicatorSymbols)
	}
	if err := req.Params.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// FetchBody is the request body for loading prices into the warehouse.
type FetchBody struct {
	Symbols   []string `json:"symbols"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Collector string   `json:"collector"`

	Fundamentals *bool `json:"fundamentals"`
}

// Request converts the body over the given defaults.
func (b FetchBody) Request(defaults app.FetchRequest) (app.FetchRequest, error) {
	req := app.FetchRequest{
		Symbols:      b.Symbols,
		Collector:    b.Collector,
		Fundamentals: defaults.Fundamentals,
	}
	if len(req.Symbols) == 0 {
		req.Symbols = defaults.Symbols
	}
	if b.Fundamentals != nil {
		req.Fundamentals = *b.Fundamentals
	}
	var err error
	if req.From, req.To, err = dateRange(b.From, b.To, defaults.From, defaults.To); err != nil {
		return req, err
	}
	if len(req.Symbols) == 0 {
		return req, core.Errorf(core.ErrInvalidRequest, "no symbols given")
	}
	return req, nil
}

func decode(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return core.WrapError(core.ErrInvalidRequest, err)
	}
	return nil
}

func dateRange(fromStr, toStr string, from, to time.Time) (time.Time, time.Time, error) {
	var err error
	if fromStr != "" {
		if from, err = time.Parse(dateLayout, fromStr); err != nil {
			return from, to, core.WrapError(core.ErrInvalidRequest, err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(dateLayout, toStr); err != nil {
			return from, to, core.WrapError(core.ErrInvalidRequest, err)
		}
	}
	if to.Before(from) {
		return from, to, core.Errorf(core.ErrInvalidRequest, "range ends before it starts")
	}
	return from, to, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func distinct(symbols []string) int {
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}
