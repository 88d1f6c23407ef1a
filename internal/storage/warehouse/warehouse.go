// Package warehouse is the price warehouse: daily bars per ticker and per
// market index, keyed so that re-loading a range overwrites instead of
// duplicating.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/frontier/internal/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Store wraps a SQLite database connection.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the warehouse at path and runs migrations. Use
// ":memory:" for a throwaway store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "warehouse path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate warehouse: %w", err)
	}
	logger.Info("warehouse opened", zap.String("path", path))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	version := 0
	s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS tickers_index (
				ticker TEXT NOT NULL,
				date   TEXT NOT NULL,
				open   REAL,
				high   REAL,
				low    REAL,
				close  REAL,
				volume INTEGER,
				PRIMARY KEY (ticker, date)
			);
			CREATE INDEX IF NOT EXISTS idx_tickers_index_date ON tickers_index(date);

			CREATE TABLE IF NOT EXISTS index_daily (
				index_name TEXT NOT NULL,
				symbol     TEXT NOT NULL,
				date       TEXT NOT NULL,
				open       REAL,
				high       REAL,
				low        REAL,
				close      REAL,
				PRIMARY KEY (index_name, date)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		s.logger.Debug("applied warehouse migration", zap.Int("version", 1))
	}

	if version < 2 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS fundamentals (
				ticker             TEXT NOT NULL,
				date               TEXT NOT NULL,
				name               TEXT,
				sector             TEXT,
				industry           TEXT,
				country            TEXT,
				city               TEXT,
				website            TEXT,
				currency           TEXT,
				exchange           TEXT,
				summary            TEXT,
				employees          INTEGER,
				market_cap         REAL,
				enterprise_value   REAL,
				shares_outstanding REAL,
				pe_trailing        REAL,
				pe_forward         REAL,
				price_to_book      REAL,
				ev_to_ebitda       REAL,
				dividend_yield     REAL,
				payout_ratio       REAL,
				has_esg            INTEGER NOT NULL DEFAULT 0,
				total_esg          REAL,
				environmental      REAL,
				social             REAL,
				governance         REAL,
				controversy        REAL,
				PRIMARY KEY (ticker, date)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		s.logger.Debug("applied warehouse migration", zap.Int("version", 2))
	}
	return nil
}

// UpsertPrices merges bars into tickers_index on (ticker, date) in a single
// transaction and returns the number of rows written.
func (s *Store) UpsertPrices(ctx context.Context, bars []core.OHLCV) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tickers_index (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()

	n := 0
	for _, b := range bars {
		if b.Symbol == "" || b.Time.IsZero() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, b.Symbol, core.Day(b.Time).Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, core.WrapError(core.ErrStorageFailed, fmt.Errorf("upsert %s: %w", b.Symbol, err))
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	return n, nil
}

// UpsertIndex merges bars into index_daily on (index_name, date).
func (s *Store) UpsertIndex(ctx context.Context, bars []core.IndexBar) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_daily (index_name, symbol, date, open, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (index_name, date) DO UPDATE SET
			symbol = excluded.symbol, open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close`)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()

	n := 0
	for _, b := range bars {
		if b.IndexName == "" || b.Date.IsZero() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, b.IndexName, b.Symbol, core.Day(b.Date).Format(dateLayout),
			b.Open, b.High, b.Low, b.Close); err != nil {
			return 0, core.WrapError(core.ErrStorageFailed, fmt.Errorf("upsert %s: %w", b.IndexName, err))
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	return n, nil
}

// Closes returns the non-null closes of tickers between from and to
// inclusive, ordered by date then ticker. An empty tickers list means every
// ticker in the warehouse.
func (s *Store) Closes(ctx context.Context, tickers []string, from, to time.Time) ([]core.PriceRow, error) {
	query := `SELECT ticker, date, close FROM tickers_index
		WHERE close IS NOT NULL AND date BETWEEN ? AND ?`
	args := []any{core.Day(from).Format(dateLayout), core.Day(to).Format(dateLayout)}
	if len(tickers) > 0 {
		query += " AND ticker IN (" + strings.TrimSuffix(strings.Repeat("?,", len(tickers)), ",") + ")"
		for _, t := range tickers {
			args = append(args, t)
		}
	}
	query += " ORDER BY date, ticker"

	return s.queryRows(ctx, query, args...)
}

// IndexCloses returns the non-null closes of one index. Rows carry the index
// name as their symbol.
func (s *Store) IndexCloses(ctx context.Context, name string, from, to time.Time) ([]core.PriceRow, error) {
	return s.queryRows(ctx, `SELECT index_name, date, close FROM index_daily
		WHERE index_name = ? AND close IS NOT NULL AND date BETWEEN ? AND ?
		ORDER BY date`,
		name, core.Day(from).Format(dateLayout), core.Day(to).Format(dateLayout))
}

// Bars returns the daily bars of one ticker between from and to inclusive,
// oldest first. Rows without a close are skipped.
func (s *Store) Bars(ctx context.Context, ticker string, from, to time.Time) ([]core.OHLCV, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, COALESCE(open, close), COALESCE(high, close),
			COALESCE(low, close), close, COALESCE(volume, 0)
		FROM tickers_index
		WHERE ticker = ? AND close IS NOT NULL AND date BETWEEN ? AND ?
		ORDER BY date`,
		ticker, core.Day(from).Format(dateLayout), core.Day(to).Format(dateLayout))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var out []core.OHLCV
	for rows.Next() {
		var (
			date string
			bar  = core.OHLCV{Symbol: ticker, Interval: "1d"}
		)
		if err := rows.Scan(&date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if bar.Time, err = time.Parse(dateLayout, date); err != nil {
			s.logger.Warn("skipping bar with bad date", zap.String("symbol", ticker), zap.String("date", date))
			continue
		}
		out = append(out, bar)
	}
	return out, rows.Err()
}

// Tickers lists the distinct tickers stored in tickers_index.
func (s *Store) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT ticker FROM tickers_index ORDER BY ticker")
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]core.PriceRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var out []core.PriceRow
	for rows.Next() {
		var (
			symbol, date string
			price        float64
		)
		if err := rows.Scan(&symbol, &date, &price); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			s.logger.Warn("skipping row with bad date", zap.String("symbol", symbol), zap.String("date", date))
			continue
		}
		out = append(out, core.PriceRow{Symbol: symbol, Date: d, Close: price})
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return out, nil
}
