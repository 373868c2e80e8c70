// Package rulestore persists rule definitions to sqlite and backs the
// RuleRuntime collaborator the orchestrator uses to fetch rules by
// purpose.
package rulestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aristath/sentinel/internal/rules"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	rule_id     TEXT PRIMARY KEY,
	purpose     TEXT NOT NULL,
	status      TEXT NOT NULL,
	entity_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_purpose ON rules(purpose);
`

// Store is a sqlite-backed rule repository. Rules are kept as their
// serializable rules.Entity form (the struct already carries the API wire
// json tags), so the store doesn't need a second encoding scheme.
type Store struct {
	db       *sql.DB
	registry *rules.Registry
	log      zerolog.Logger
}

// Open opens (creating if absent) a sqlite database at path and ensures
// its schema exists.
func Open(path string, registry *rules.Registry, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("rulestore: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("rulestore: create schema: %w", err)
	}
	return &Store{db: db, registry: registry, log: log.With().Str("component", "rulestore.Store").Logger()}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts or updates rule, generating a RuleID via uuid if it does
// not already have one (a freshly authored rule, before any content hash
// has been computed for it).
func (s *Store) Save(ctx context.Context, rule *rules.Rule) error {
	if rule.RuleID == "" {
		rule.RuleID = uuid.NewString()
	}

	entity, err := rule.ToEntity()
	if err != nil {
		return fmt.Errorf("rulestore: serialize rule %q: %w", rule.Name, err)
	}

	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("rulestore: marshal entity %q: %w", rule.RuleID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (rule_id, purpose, status, entity_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET
			purpose = excluded.purpose,
			status = excluded.status,
			entity_json = excluded.entity_json
	`, entity.RuleID, string(entity.Purpose), string(entity.RuleStatus), payload)
	if err != nil {
		return fmt.Errorf("rulestore: upsert rule %q: %w", entity.RuleID, err)
	}
	return nil
}

// Delete removes ruleID unconditionally.
func (s *Store) Delete(ctx context.Context, ruleID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE rule_id = ?`, ruleID)
	return err
}

// List returns every stored rule whose purpose matches, or every rule if
// purpose is empty.
func (s *Store) List(ctx context.Context, purpose rules.SemanticType) ([]*rules.Rule, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if purpose == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT entity_json FROM rules`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT entity_json FROM rules WHERE purpose = ?`, string(purpose))
	}
	if err != nil {
		return nil, fmt.Errorf("rulestore: query rules: %w", err)
	}
	defer rows.Close()

	var out []*rules.Rule
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("rulestore: scan row: %w", err)
		}

		var entity rules.Entity
		if err := json.Unmarshal([]byte(payload), &entity); err != nil {
			s.log.Warn().Err(err).Msg("skipping rule row with corrupt entity json")
			continue
		}

		rule, err := rules.FromEntity(s.registry, &entity)
		if err != nil {
			s.log.Warn().Err(err).Str("rule_id", entity.RuleID).Msg("skipping rule that failed to parse")
			continue
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// RulesFor implements orchestrator.RuleProvider: it returns every READY
// and EVOLVING rule for purpose, logging and skipping any row that fails
// to load rather than failing the whole lookup.
func (s *Store) RulesFor(purpose rules.SemanticType) []*rules.Rule {
	loaded, err := s.List(context.Background(), purpose)
	if err != nil {
		s.log.Error().Err(err).Str("purpose", string(purpose)).Msg("failed to load rules for purpose")
		return nil
	}
	out := make([]*rules.Rule, 0, len(loaded))
	for _, rule := range loaded {
		if rule.Status == rules.StatusReady || rule.Status == rules.StatusEvolving {
			out = append(out, rule)
		}
	}
	return out
}
