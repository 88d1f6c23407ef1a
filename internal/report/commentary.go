package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/frontier/internal/capm"
	"github.com/newthinker/frontier/internal/llm"
)

const commentaryPrompt = `You are a portfolio analyst writing for an investment committee.
Explain the result in at most five sentences: how concentrated the two
portfolios are, how their risk and return compare, and which assets dominate.
Do not give investment advice. Plain text only.`

const commentaryMaxTokens = 400

// Commentary asks the provider for a short narrative of a frontier run. A nil
// provider yields an empty string.
func Commentary(ctx context.Context, p llm.Provider, s *Summary) (string, error) {
	if p == nil {
		return "", nil
	}
	text, err := llm.Ask(ctx, p, commentaryPrompt, s.Text(), commentaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("frontier commentary: %w", err)
	}
	return text, nil
}

// SMLCommentary narrates an SML analysis.
func SMLCommentary(ctx context.Context, p llm.Provider, a *capm.Analysis) (string, error) {
	if p == nil {
		return "", nil
	}
	text, err := llm.Ask(ctx, p, commentaryPrompt, SMLText(a), commentaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("sml commentary: %w", err)
	}
	return text, nil
}

// SMLText renders an SML analysis as a table.
func SMLText(a *capm.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SML against %s: E[Rm] %.2f%%, Rf %.2f%%, premium %.2f%%\n",
		a.Market, a.MarketReturn*100, a.RiskFreeRate*100, a.MarketPremium*100)
	fmt.Fprintf(&b, "%-10s %7s %8s %8s %9s %6s %5s\n", "symbol", "beta", "E[Ri]", "CAPM", "mispr.", "R2", "class")
	for _, p := range a.Points {
		fmt.Fprintf(&b, "%-10s %7.3f %7.2f%% %7.2f%% %8.2f%% %6.3f %5s\n",
			p.Symbol, p.Beta, p.Expected*100, p.CAPM*100, p.Mispricing*100, p.R2, p.Class)
	}
	if len(a.Skipped) > 0 {
		fmt.Fprintf(&b, "skipped (fewer than %d years): %s\n", capm.MinObservations, strings.Join(a.Skipped, ", "))
	}
	return b.String()
}
