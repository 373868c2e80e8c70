// Package marketdata provides the sqlite-backed implementations of the
// two external-boundary collaborators the spec treats as out of scope: a
// bar-series OHLCV source and a ticker-to-sector metadata lookup. Data
// ingestion itself is out of scope; this package only reads what an
// ingestion job has already written.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aristath/sentinel/internal/modules/technical"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_bars (
	ticker TEXT NOT NULL,
	ts     INTEGER NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (ticker, ts)
);
CREATE TABLE IF NOT EXISTS intraday_bars (
	ticker TEXT NOT NULL,
	ts     INTEGER NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (ticker, ts)
);
CREATE TABLE IF NOT EXISTS securities (
	ticker TEXT PRIMARY KEY,
	sector TEXT NOT NULL
);
`

// Store is a sqlite-backed reader for bar series and sector metadata.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if absent) a sqlite database at path and ensures
// its schema exists.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("marketdata: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("marketdata: create schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "marketdata.Store").Logger()}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Daily implements orchestrator.OHLCVProvider.
func (s *Store) Daily(ctx context.Context, ticker string) ([]technical.Bar, error) {
	return s.bars(ctx, "daily_bars", ticker)
}

// Intraday implements orchestrator.OHLCVProvider.
func (s *Store) Intraday(ctx context.Context, ticker string) ([]technical.Bar, error) {
	return s.bars(ctx, "intraday_bars", ticker)
}

func (s *Store) bars(ctx context.Context, table, ticker string) ([]technical.Bar, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT ts, open, high, low, close, volume FROM %s WHERE ticker = ? ORDER BY ts ASC
	`, table), ticker)
	if err != nil {
		return nil, fmt.Errorf("marketdata: query %s for %q: %w", table, ticker, err)
	}
	defer rows.Close()

	var out []technical.Bar
	for rows.Next() {
		var ts int64
		var bar technical.Bar
		if err := rows.Scan(&ts, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("marketdata: scan %s row: %w", table, err)
		}
		bar.Time = time.Unix(ts, 0).UTC()
		out = append(out, bar)
	}
	return out, rows.Err()
}

// Exists implements orchestrator.Metadata: a ticker exists once it has at
// least one daily bar or a registered sector.
func (s *Store) Exists(ctx context.Context, ticker string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM securities WHERE ticker = ?`, ticker).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("marketdata: check existence of %q: %w", ticker, err)
	}
	if count > 0 {
		return true, nil
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_bars WHERE ticker = ?`, ticker).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("marketdata: check bar existence of %q: %w", ticker, err)
	}
	return count > 0, nil
}

// Sector implements orchestrator.Metadata.
func (s *Store) Sector(ctx context.Context, ticker string) (string, error) {
	var sector string
	err := s.db.QueryRowContext(ctx, `SELECT sector FROM securities WHERE ticker = ?`, ticker).Scan(&sector)
	if err == sql.ErrNoRows {
		return "UNKNOWN", nil
	}
	if err != nil {
		return "", fmt.Errorf("marketdata: lookup sector for %q: %w", ticker, err)
	}
	return sector, nil
}

// Sectors returns every distinct sector currently registered, used to
// drive the Request Orchestrator's PreloadAll sector enumeration.
func (s *Store) Sectors(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT sector FROM securities`)
	if err != nil {
		return nil, fmt.Errorf("marketdata: list sectors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sector string
		if err := rows.Scan(&sector); err != nil {
			return nil, fmt.Errorf("marketdata: scan sector row: %w", err)
		}
		out = append(out, sector)
	}
	return out, rows.Err()
}
