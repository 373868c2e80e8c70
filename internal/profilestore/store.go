// Package profilestore persists per-user advisory profiles and backs the
// orchestrator's ProfileStore collaborator.
package profilestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aristath/sentinel/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id      TEXT PRIMARY KEY,
	horizon      TEXT NOT NULL,
	weights_json TEXT NOT NULL
);
`

// DefaultProfile is returned by Get when userID has no stored profile, so
// the advisory flow always has weights to synthesize with.
var DefaultProfile = domain.Profile{
	Horizon: "medium",
	Weights: map[string]float64{"decision": 1.0, "risk": 1.0, "opportunity": 1.0},
}

// Store is a sqlite-backed profile repository.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if absent) a sqlite database at path and ensures
// its schema exists.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("profilestore: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("profilestore: create schema: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "profilestore.Store").Logger()}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get implements orchestrator.ProfileStore: it returns userID's stored
// profile, or DefaultProfile if none has been saved yet.
func (s *Store) Get(ctx context.Context, userID string) (domain.Profile, error) {
	var horizon, weightsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT horizon, weights_json FROM profiles WHERE user_id = ?`, userID).
		Scan(&horizon, &weightsJSON)
	if err == sql.ErrNoRows {
		profile := DefaultProfile
		profile.UserID = userID
		return profile, nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profilestore: lookup profile for %q: %w", userID, err)
	}

	var weights map[string]float64
	if err := json.Unmarshal([]byte(weightsJSON), &weights); err != nil {
		return domain.Profile{}, fmt.Errorf("profilestore: decode weights for %q: %w", userID, err)
	}

	return domain.Profile{UserID: userID, Horizon: horizon, Weights: weights}, nil
}

// Save inserts or updates profile.
func (s *Store) Save(ctx context.Context, profile domain.Profile) error {
	weightsJSON, err := json.Marshal(profile.Weights)
	if err != nil {
		return fmt.Errorf("profilestore: encode weights for %q: %w", profile.UserID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, horizon, weights_json)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			horizon = excluded.horizon,
			weights_json = excluded.weights_json
	`, profile.UserID, profile.Horizon, weightsJSON)
	if err != nil {
		return fmt.Errorf("profilestore: upsert profile for %q: %w", profile.UserID, err)
	}
	return nil
}
