package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/frontier/internal/core"
)

const fundamentalColumns = `ticker, date, name, sector, industry, country, city, website, currency,
	exchange, summary, employees, market_cap, enterprise_value, shares_outstanding, pe_trailing,
	pe_forward, price_to_book, ev_to_ebitda, dividend_yield, payout_ratio, has_esg, total_esg,
	environmental, social, governance, controversy`

// UpsertFundamentals merges snapshots into fundamentals on (ticker, date).
// Re-running a snapshot on the same day overwrites it.
func (s *Store) UpsertFundamentals(ctx context.Context, snaps []core.Fundamental) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	cols := strings.Split(strings.Join(strings.Fields(fundamentalColumns), ""), ",")
	var set []string
	for _, c := range cols[2:] {
		set = append(set, c+" = excluded."+c)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO fundamentals (%s)
		VALUES (%s)
		ON CONFLICT (ticker, date) DO UPDATE SET %s`,
		fundamentalColumns, strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","), strings.Join(set, ", ")))
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()

	n := 0
	for _, f := range snaps {
		if !f.IsValid() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, f.Symbol, core.Day(f.Date).Format(dateLayout),
			f.Name, f.Sector, f.Industry, f.Country, f.City, f.Website, f.Currency,
			f.Exchange, f.Summary, f.Employees, f.MarketCap, f.EnterpriseValue, f.SharesOutstanding,
			f.PETrailing, f.PEForward, f.PriceToBook, f.EVToEBITDA, f.DividendYield, f.PayoutRatio,
			f.HasESG, f.TotalESG, f.Environmental, f.Social, f.Governance, f.Controversy); err != nil {
			return 0, core.WrapError(core.ErrStorageFailed, fmt.Errorf("upsert %s: %w", f.Symbol, err))
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	return n, nil
}

// Fundamentals returns the latest snapshot of each ticker, ordered by
// ticker. An empty tickers list means every ticker with a snapshot.
func (s *Store) Fundamentals(ctx context.Context, tickers []string) ([]core.Fundamental, error) {
	query := `SELECT ` + fundamentalColumns + ` FROM fundamentals f
		WHERE date = (SELECT MAX(date) FROM fundamentals WHERE ticker = f.ticker)`
	var args []any
	if len(tickers) > 0 {
		query += " AND ticker IN (" + strings.TrimSuffix(strings.Repeat("?,", len(tickers)), ",") + ")"
		for _, t := range tickers {
			args = append(args, t)
		}
	}
	query += " ORDER BY ticker"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var out []core.Fundamental
	for rows.Next() {
		var (
			f    core.Fundamental
			date string
			text [9]*string
		)
		if err := rows.Scan(&f.Symbol, &date,
			&text[0], &text[1], &text[2], &text[3], &text[4], &text[5], &text[6], &text[7], &text[8],
			&f.Employees, &f.MarketCap, &f.EnterpriseValue, &f.SharesOutstanding,
			&f.PETrailing, &f.PEForward, &f.PriceToBook, &f.EVToEBITDA, &f.DividendYield, &f.PayoutRatio,
			&f.HasESG, &f.TotalESG, &f.Environmental, &f.Social, &f.Governance, &f.Controversy); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if f.Date, err = time.Parse(dateLayout, date); err != nil {
			s.logger.Warn("skipping snapshot with bad date", zap.String("symbol", f.Symbol), zap.String("date", date))
			continue
		}
		for i, dst := range []*string{&f.Name, &f.Sector, &f.Industry, &f.Country, &f.City,
			&f.Website, &f.Currency, &f.Exchange, &f.Summary} {
			if text[i] != nil {
				*dst = *text[i]
			}
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return out, nil
}
