package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/rules"
)

// RuleStore is the SQLite-backed rules.Store implementation. Rules
// keep their insertion order (rowid) so first-match-wins evaluation
// behaves the same as the in-memory store.
type RuleStore struct {
	db     *DB
	parser rules.Parser
}

// NewRuleStore creates a rule store on an open database. A nil parser
// defaults to the heuristic one.
func NewRuleStore(db *DB, parser rules.Parser) *RuleStore {
	if parser == nil {
		parser = rules.NewHeuristicParser()
	}
	return &RuleStore{db: db, parser: parser}
}

var _ rules.Store = (*RuleStore)(nil)

func (s *RuleStore) Add(prompt string) (*domain.DynamicRule, error) {
	rule, err := s.parser.Parse(prompt)
	if err != nil {
		return nil, err
	}

	keywords, err := json.Marshal(rule.Keywords)
	if err != nil {
		return nil, fmt.Errorf("encoding keywords: %w", err)
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return nil, fmt.Errorf("encoding action: %w", err)
	}

	active := 0
	if rule.Active {
		active = 1
	}
	_, err = s.db.sql.Exec(
		"INSERT INTO rules (id, prompt, keywords, action, created_at, active) VALUES (?, ?, ?, ?, ?, ?)",
		rule.ID, rule.Prompt, string(keywords), string(action), fmtTime(rule.CreatedAt), active)
	if err != nil {
		return nil, fmt.Errorf("inserting rule: %w", err)
	}
	return rule, nil
}

func (s *RuleStore) Deactivate(id string) error {
	res, err := s.db.sql.Exec("UPDATE rules SET active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivating rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivating rule: %w", err)
	}
	if n == 0 {
		return rules.ErrRuleNotFound
	}
	return nil
}

func (s *RuleStore) List() []domain.DynamicRule {
	out, err := s.load(false)
	if err != nil {
		s.db.log.Error().Err(err).Msg("listing rules")
		return nil
	}
	return out
}

func (s *RuleStore) CheckMessage(text string) *domain.DynamicRule {
	active, err := s.load(true)
	if err != nil {
		s.db.log.Error().Err(err).Msg("checking rules")
		return nil
	}

	lower := strings.ToLower(text)
	for i := range active {
		for _, kw := range active[i].Keywords {
			if strings.Contains(lower, kw) {
				return &active[i]
			}
		}
	}
	return nil
}

func (s *RuleStore) Clear() {
	if _, err := s.db.sql.Exec("DELETE FROM rules"); err != nil {
		s.db.log.Error().Err(err).Msg("clearing rules")
	}
}

func (s *RuleStore) load(activeOnly bool) ([]domain.DynamicRule, error) {
	query := "SELECT id, prompt, keywords, action, created_at, active FROM rules ORDER BY rowid"
	if activeOnly {
		query = "SELECT id, prompt, keywords, action, created_at, active FROM rules WHERE active = 1 ORDER BY rowid"
	}
	rows, err := s.db.sql.Query(query)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	defer rows.Close()

	var out []domain.DynamicRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRule(rows *sql.Rows) (*domain.DynamicRule, error) {
	var (
		r                domain.DynamicRule
		keywords, action string
		createdAt        string
		active           int
	)
	if err := rows.Scan(&r.ID, &r.Prompt, &keywords, &action, &createdAt, &active); err != nil {
		return nil, fmt.Errorf("scanning rule: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
		return nil, fmt.Errorf("decoding keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(action), &r.Action); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	r.CreatedAt = parseTime(createdAt)
	r.Active = active != 0
	return &r, nil
}
