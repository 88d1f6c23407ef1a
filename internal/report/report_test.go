package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/frontier/internal/capm"
	"github.com/newthinker/frontier/internal/frontier"
	"github.com/newthinker/frontier/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *frontier.Result {
	return &frontier.Result{
		Symbols: []string{"IBE.MC", "ITX.MC", "SAN.MC"},
		Trials: []frontier.Trial{
			{Weights: []float64{0.5, 0.3, 0.2}, Return: 0.08, Volatility: 0.20, Sharpe: 0.25},
			{Weights: []float64{0.996, 0.002, 0.002}, Return: 0.05, Volatility: 0.12, Sharpe: 1.0 / 6},
			{Weights: []float64{0.1, 0.8, 0.1}, Return: 0.15, Volatility: 0.19, Sharpe: 0.6316},
			{Weights: []float64{0.2, 0.2, 0.6}, Return: 0.02, Volatility: 0.30, Sharpe: -0.0333},
		},
		MinVolatility:  1,
		MaxSharpe:      2,
		PeriodsPerYear: 252,
		RiskFreeRate:   0.03,
		Sampler:        "uniform",
	}
}

func TestSummarize(t *testing.T) {
	created := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	s := Summarize(sampleResult(), Options{
		RunID:      "run-1",
		CreatedAt:  created,
		From:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		ReturnKind: "simple",
	})

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 4, s.Trials)
	assert.Equal(t, "2020-01-01", s.From)
	assert.Equal(t, "2024-12-31", s.To)

	assert.Equal(t, 1, s.MinVariance.Index)
	assert.Equal(t, []Holding{{Symbol: "IBE.MC", Weight: 0.996}}, s.MinVariance.Holdings)
	assert.Equal(t, 2, s.MaxSharpe.Index)
	assert.Len(t, s.MaxSharpe.Holdings, 3)
	assert.Equal(t, []string{"IBE.MC: 10.0%", "ITX.MC: 80.0%", "SAN.MC: 10.0%"}, s.MaxSharpe.Lines())

	assert.Equal(t, Extents{VolatilityMin: 0.12, VolatilityMax: 0.30, ReturnMin: 0.02, ReturnMax: 0.15}, s.Extents)

	text := s.Text()
	assert.Contains(t, text, "Minimum variance")
	assert.Contains(t, text, "ITX.MC: 80.0%")
	assert.Contains(t, text, "2020-01-01 to 2024-12-31")
}

func TestComposition_Threshold(t *testing.T) {
	symbols := []string{"A", "B", "C"}
	got := Composition(symbols, []float64{0.005, 0.0051, 0.9899}, DefaultThreshold)
	assert.Equal(t, []Holding{{"B", 0.0051}, {"C", 0.9899}}, got)

	assert.Empty(t, Composition(symbols, []float64{0.3, 0.3, 0.4}, 0.5))
}

func TestPortfolio_BriefLines(t *testing.T) {
	p := Portfolio{Label: "Maximum Sharpe"}
	for i := range 10 {
		if i == 2 {
			p.Holdings = append(p.Holdings, Holding{Symbol: "SMALL", Weight: 0.008})
		}
		p.Holdings = append(p.Holdings, Holding{Symbol: fmt.Sprintf("S%d", i), Weight: 0.09})
	}

	lines := p.BriefLines()
	require.Len(t, lines, BriefLines)
	assert.Equal(t, "S0: 9.0%", lines[0])
	assert.NotContains(t, lines, "SMALL: 0.8%")
	assert.Equal(t, "S7: 9.0%", lines[7])

	// detailed lines keep everything above the detailed threshold
	assert.Len(t, p.Lines(), 11)
}

func TestSummary_Brief(t *testing.T) {
	s := Summarize(sampleResult(), Options{RunID: "run-1"})
	brief := s.Brief()
	assert.Contains(t, brief, "Minimum variance")
	assert.Contains(t, brief, "Maximum Sharpe")
	assert.Contains(t, brief, "ITX.MC: 80.0%")
	assert.NotContains(t, brief, "run-1")
}

func TestWriteTrialsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrialsCSV(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"return", "volatility", "sharpe", "w_IBE.MC", "w_ITX.MC", "w_SAN.MC"}, records[0])
	assert.Equal(t, []string{"0.08", "0.2", "0.25", "0.5", "0.3", "0.2"}, records[1])
}

func TestEnvelope(t *testing.T) {
	res := sampleResult()
	env := Envelope(res, 3)
	require.NotEmpty(t, env)

	// three buckets of width 0.06 starting at 0.12
	require.Len(t, env, 3)
	assert.InDelta(t, 0.05, env[0].Return, 1e-12)
	assert.InDelta(t, 0.15, env[1].Return, 1e-12)
	assert.InDelta(t, 0.02, env[2].Return, 1e-12)
	for i := 1; i < len(env); i++ {
		assert.Greater(t, env[i].Volatility, env[i-1].Volatility)
	}

	assert.Nil(t, Envelope(&frontier.Result{}, 10))

	single := &frontier.Result{Trials: []frontier.Trial{{Return: 0.1, Volatility: 0.2}}}
	assert.Len(t, Envelope(single, 10), 1)
}

func TestRenderFrontierChart(t *testing.T) {
	png, err := RenderFrontierChart(sampleResult(), ChartOptions{Width: 400, Height: 300, Buckets: 3})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected PNG output")

	_, err = RenderFrontierChart(&frontier.Result{}, ChartOptions{})
	assert.Error(t, err)
}

func sampleAnalysis() *capm.Analysis {
	return &capm.Analysis{
		Market:        "IBEX 35",
		RiskFreeRate:  0.03,
		MarketReturn:  0.08,
		MarketPremium: 0.05,
		Points: []capm.Point{
			{Symbol: "ITX.MC", Fit: capm.Fit{Beta: 1.3, R2: 0.7, NObs: 4}, Expected: 0.15, CAPM: 0.095, Mispricing: 0.055, Class: capm.ClassTP},
			{Symbol: "IBE.MC", Fit: capm.Fit{Beta: 0.6, R2: 0.4, NObs: 4}, Expected: 0.04, CAPM: 0.06, Mispricing: -0.02, Class: capm.ClassTN},
		},
		Skipped: []string{"AENA.MC"},
	}
}

func TestRenderSMLChart(t *testing.T) {
	png, err := RenderSMLChart(sampleAnalysis(), ChartOptions{Width: 400, Height: 300})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected PNG output")

	_, err = RenderSMLChart(&capm.Analysis{}, ChartOptions{})
	assert.Error(t, err)
}

func TestSMLText(t *testing.T) {
	text := SMLText(sampleAnalysis())
	assert.Contains(t, text, "IBEX 35")
	assert.Contains(t, text, "ITX.MC")
	assert.Contains(t, text, "TP")
	assert.Contains(t, text, "skipped (fewer than 3 years): AENA.MC")
}

type fakeProvider struct {
	got  llm.ChatRequest
	resp string
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.resp}, nil
}

func TestCommentary(t *testing.T) {
	s := Summarize(sampleResult(), Options{RunID: "run-2"})

	text, err := Commentary(context.Background(), nil, s)
	require.NoError(t, err)
	assert.Empty(t, text)

	p := &fakeProvider{resp: "  Concentrated in ITX.MC.  "}
	text, err = Commentary(context.Background(), p, s)
	require.NoError(t, err)
	assert.Equal(t, "Concentrated in ITX.MC.", text)
	require.Len(t, p.got.Messages, 1)
	assert.True(t, strings.Contains(p.got.Messages[0].Content, "run-2"))
	assert.Equal(t, commentaryMaxTokens, p.got.MaxTokens)

	_, err = Commentary(context.Background(), &fakeProvider{err: errors.New("boom")}, s)
	assert.Error(t, err)

	text, err = SMLCommentary(context.Background(), &fakeProvider{resp: "ok"}, sampleAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
