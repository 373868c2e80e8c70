// Package store persists historical AnalysisReports produced by completed
// backtest jobs, keyed by ticker and snapshot timestamp, in the sqlite
// file given to Open.
package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	_ "modernc.org/sqlite"

	"github.com/aristath/sentinel/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS historical_reports (
	ticker     TEXT NOT NULL,
	job_id     TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	report     BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (ticker, ts)
);
CREATE INDEX IF NOT EXISTS idx_historical_reports_job ON historical_reports (job_id);
`

// Store is the sqlite-backed persistence layer for backtest-generated
// historical reports.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if absent) the reports database at path and
// ensures its schema exists.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("backtest store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("backtest store: migrate schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "backtest.store.Store").Logger()}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// SaveReport persists one historical report for ticker at timestamp ts,
// tagged with the job that produced it.
func (s *Store) SaveReport(ticker, jobID string, ts int64, createdAt int64, report *domain.AnalysisReport) error {
	blob, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("backtest store: marshal report: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO historical_reports (ticker, job_id, ts, report, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(ticker, ts) DO UPDATE SET job_id=excluded.job_id, report=excluded.report, created_at=excluded.created_at`,
		ticker, jobID, ts, blob, createdAt,
	)
	if err != nil {
		return fmt.Errorf("backtest store: insert report for %s@%d: %w", ticker, ts, err)
	}
	return nil
}

// LoadReports returns every report persisted for the given job, ordered
// by timestamp ascending.
func (s *Store) LoadReports(ticker, jobID string) ([]*domain.AnalysisReport, error) {
	rows, err := s.db.Query(
		`SELECT report FROM historical_reports WHERE ticker = ? AND job_id = ? ORDER BY ts ASC`,
		ticker, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("backtest store: query reports for %s/%s: %w", ticker, jobID, err)
	}
	defer rows.Close()

	var out []*domain.AnalysisReport
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("backtest store: scan report row: %w", err)
		}
		var report domain.AnalysisReport
		if err := msgpack.Unmarshal(blob, &report); err != nil {
			return nil, fmt.Errorf("backtest store: unmarshal report: %w", err)
		}
		out = append(out, &report)
	}
	return out, rows.Err()
}

// DeleteForTicker removes every persisted report for ticker.
func (s *Store) DeleteForTicker(ticker string) error {
	_, err := s.db.Exec(`DELETE FROM historical_reports WHERE ticker = ?`, ticker)
	if err != nil {
		return fmt.Errorf("backtest store: delete reports for %s: %w", ticker, err)
	}
	return nil
}
