package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/newthinker/frontier/internal/core"
)

const summaryModules = "assetProfile,price,summaryDetail,defaultKeyStatistics,financialData,esgScores"

// FetchFundamental snapshots profile, valuation ratios and ESG scores from
// the quoteSummary endpoint. Missing ESG coverage is not an error.
func (y *Yahoo) FetchFundamental(ctx context.Context, symbol string) (*core.Fundamental, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s?modules=%s",
		y.summaryURL, url.PathEscape(y.toYahooSymbol(symbol)), url.QueryEscape(summaryModules))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching summary: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.Errorf(core.ErrSymbolNotFound, "no summary for symbol: %s", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.Errorf(core.ErrCollectorFailed, "unexpected status: %d", resp.StatusCode)
	}

	var result summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.QuoteSummary.Error != nil {
		return nil, core.Errorf(core.ErrCollectorFailed, "yahoo error: %s", result.QuoteSummary.Error.Description)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no summary for symbol: %s", symbol)
	}

	return result.QuoteSummary.Result[0].fundamental(symbol, core.Day(y.now())), nil
}

func (r summaryResult) fundamental(symbol string, day time.Time) *core.Fundamental {
	p, d, k := r.AssetProfile, r.SummaryDetail, r.KeyStatistics
	f := &core.Fundamental{
		Symbol:    symbol,
		Date:      day,
		Name:      first(r.Price.LongName, r.Price.ShortName),
		Sector:    p.Sector,
		Industry:  p.Industry,
		Country:   p.Country,
		City:      p.City,
		Website:   p.Website,
		Summary:   p.LongBusinessSummary,
		Employees: p.FullTimeEmployees,
		Currency:  first(r.Price.Currency, d.Currency),
		Exchange:  first(r.Price.ExchangeName, r.Price.Exchange),

		MarketCap:         first(r.Price.MarketCap.Raw, d.MarketCap.Raw),
		EnterpriseValue:   k.EnterpriseValue.Raw,
		SharesOutstanding: k.SharesOutstanding.Raw,
		PETrailing:        d.TrailingPE.Raw,
		PEForward:         first(d.ForwardPE.Raw, k.ForwardPE.Raw),
		PriceToBook:       k.PriceToBook.Raw,
		EVToEBITDA:        k.EnterpriseToEbitda.Raw,
		DividendYield:     d.DividendYield.Raw,
		PayoutRatio:       d.PayoutRatio.Raw,
	}

	// derive EV/EBITDA when the ratio is missing or degenerate
	if ev, ebitda := f.EnterpriseValue, r.FinancialData.Ebitda.Raw; (f.EVToEBITDA == nil || *f.EVToEBITDA == 0) &&
		ev != nil && ebitda != nil && *ebitda != 0 {
		ratio := *ev / *ebitda
		f.EVToEBITDA = &ratio
	}

	if e := r.ESGScores; e != nil {
		f.TotalESG = e.TotalEsg.Raw
		f.Environmental = e.EnvironmentScore.Raw
		f.Social = e.SocialScore.Raw
		f.Governance = e.GovernanceScore.Raw
		f.Controversy = e.HighestControversy
		f.HasESG = f.TotalESG != nil || f.Environmental != nil || f.Social != nil ||
			f.Governance != nil || f.Controversy != nil
	}
	return f
}

func first[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

// quoteSummary response types. Numeric fields arrive as {"raw": x, "fmt": "..."}
// and as {} when Yahoo has no value.
type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type summaryResult struct {
	AssetProfile struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		Country             string `json:"country"`
		City                string `json:"city"`
		Website             string `json:"website"`
		LongBusinessSummary string `json:"longBusinessSummary"`
		FullTimeEmployees   *int64 `json:"fullTimeEmployees"`
	} `json:"assetProfile"`
	Price struct {
		LongName     string   `json:"longName"`
		ShortName    string   `json:"shortName"`
		Currency     string   `json:"currency"`
		Exchange     string   `json:"exchange"`
		ExchangeName string   `json:"exchangeName"`
		MarketCap    rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryDetail struct {
		Currency      string   `json:"currency"`
		MarketCap     rawValue `json:"marketCap"`
		TrailingPE    rawValue `json:"trailingPE"`
		ForwardPE     rawValue `json:"forwardPE"`
		DividendYield rawValue `json:"dividendYield"`
		PayoutRatio   rawValue `json:"payoutRatio"`
	} `json:"summaryDetail"`
	KeyStatistics struct {
		EnterpriseValue    rawValue `json:"enterpriseValue"`
		SharesOutstanding  rawValue `json:"sharesOutstanding"`
		ForwardPE          rawValue `json:"forwardPE"`
		PriceToBook        rawValue `json:"priceToBook"`
		EnterpriseToEbitda rawValue `json:"enterpriseToEbitda"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		Ebitda rawValue `json:"ebitda"`
	} `json:"financialData"`
	ESGScores *struct {
		TotalEsg           rawValue `json:"totalEsg"`
		EnvironmentScore   rawValue `json:"environmentScore"`
		SocialScore        rawValue `json:"socialScore"`
		GovernanceScore    rawValue `json:"governanceScore"`
		HighestControversy *float64 `json:"highestControversy"`
	} `json:"esgScores"`
}
