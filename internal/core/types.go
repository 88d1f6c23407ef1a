package core

import "time"

// ReturnKind selects how period-over-period returns are computed from closes
type ReturnKind string

const (
	ReturnSimple ReturnKind = "simple"
	ReturnLog    ReturnKind = "log"
)

// Valid reports whether k is a known return kind
func (k ReturnKind) Valid() bool {
	return k == ReturnSimple || k == ReturnLog
}

// OHLCV represents a daily bar as delivered by a collector
type OHLCV struct {
	Symbol   string
	Interval string // "1d", "1wk", "1mo"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// PriceRow is one (symbol, date, close) observation of the price table
type PriceRow struct {
	Symbol string
	Date   time.Time
	Close  float64
}

// IsValid checks if the row can take part in a return calculation
func (p PriceRow) IsValid() bool {
	return p.Symbol != "" && !p.Date.IsZero() && p.Close > 0
}

// IndexBar is a daily bar of a market index
type IndexBar struct {
	IndexName string
	Symbol    string
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Day truncates t to its calendar date in UTC
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Fundamental is a dated snapshot of a company's profile, valuation ratios
// and ESG risk scores. Nil ratios and scores were not reported by the source.
type Fundamental struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`

	Name      string `json:"name,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Country   string `json:"country,omitempty"`
	City      string `json:"city,omitempty"`
	Website   string `json:"website,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Employees *int64 `json:"employees,omitempty"`

	MarketCap         *float64 `json:"market_cap,omitempty"`
	EnterpriseValue   *float64 `json:"enterprise_value,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	PETrailing        *float64 `json:"pe_trailing,omitempty"`
	PEForward         *float64 `json:"pe_forward,omitempty"`
	PriceToBook       *float64 `json:"price_to_book,omitempty"`
	EVToEBITDA        *float64 `json:"ev_to_ebitda,omitempty"`
	DividendYield     *float64 `json:"dividend_yield,omitempty"`
	PayoutRatio       *float64 `json:"payout_ratio,omitempty"`

	HasESG        bool     `json:"has_esg"`
	TotalESG      *float64 `json:"total_esg,omitempty"`
	Environmental *float64 `json:"environmental,omitempty"`
	Social        *float64 `json:"social,omitempty"`
	Governance    *float64 `json:"governance,omitempty"`
	Controversy   *float64 `json:"controversy,omitempty"`
}

// IsValid checks if the snapshot can be stored
func (f Fundamental) IsValid() bool {
	return f.Symbol != "" && !f.Date.IsZero()
}
