package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/extract"
	"github.com/lookfor-ai/maestro/internal/session"
)

// SessionStore is the SQLite-backed session.Store implementation.
// Sessions survive process restarts; the escalated flag and summary
// keep the same one-way semantics as the in-memory store.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store on an open database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

var _ session.Store = (*SessionStore)(nil)

func (s *SessionStore) Create(customer domain.Customer) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		Customer:  customer,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.sql.Exec(`
		INSERT INTO sessions (id, email, first_name, last_name, shopify_customer_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, customer.Email, customer.FirstName, customer.LastName,
		customer.ShopifyCustomerID, string(sess.Status), fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Get(id string) (*domain.Session, error) {
	row := s.db.sql.QueryRow(`
		SELECT id, email, first_name, last_name, shopify_customer_id, status,
		       order_numbers, intent_history, escalated, escalation_reason,
		       escalation_summary, current_handler, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	var (
		sess                 domain.Session
		status               string
		orderNumbers         string
		intentHistory        string
		escalated            int
		summaryJSON          sql.NullString
		handler              string
		createdAt, updatedAt string
	)
	err := row.Scan(&sess.ID, &sess.Customer.Email, &sess.Customer.FirstName,
		&sess.Customer.LastName, &sess.Customer.ShopifyCustomerID, &status,
		&orderNumbers, &intentHistory, &escalated, &sess.Context.EscalationReason,
		&summaryJSON, &handler, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	sess.Status = domain.Status(status)
	sess.Context.Escalated = escalated != 0
	sess.Context.CurrentHandler = domain.HandlerID(handler)
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)

	if err := json.Unmarshal([]byte(orderNumbers), &sess.Context.MentionedOrderNumbers); err != nil {
		return nil, fmt.Errorf("decoding order numbers: %w", err)
	}
	if err := json.Unmarshal([]byte(intentHistory), &sess.Context.IntentHistory); err != nil {
		return nil, fmt.Errorf("decoding intent history: %w", err)
	}
	if summaryJSON.Valid {
		var sum domain.EscalationSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err != nil {
			return nil, fmt.Errorf("decoding escalation summary: %w", err)
		}
		sess.Context.EscalationSummary = &sum
	}

	if sess.Messages, err = s.loadMessages(id); err != nil {
		return nil, err
	}
	if sess.ToolCalls, err = s.loadToolCalls(id); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) loadMessages(id string) ([]domain.Message, error) {
	rows, err := s.db.sql.Query(
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var role, ts string
		var msg domain.Message
		if err := rows.Scan(&role, &msg.Text, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.Timestamp = parseTime(ts)
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SessionStore) loadToolCalls(id string) ([]domain.ToolCallRecord, error) {
	rows, err := s.db.sql.Query(
		"SELECT handle, input, output, success, error, timestamp FROM tool_calls WHERE session_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("loading tool calls: %w", err)
	}
	defer rows.Close()

	var out []domain.ToolCallRecord
	for rows.Next() {
		var rec domain.ToolCallRecord
		var success int
		var ts string
		if err := rows.Scan(&rec.Handle, &rec.Input, &rec.Output, &success, &rec.Error, &ts); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}
		rec.Success = success != 0
		rec.Timestamp = parseTime(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SessionStore) AppendMessage(id string, msg domain.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := s.requireSession(id); err != nil {
		return err
	}
	_, err := s.db.sql.Exec(
		"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
		id, string(msg.Role), msg.Text, fmtTime(msg.Timestamp))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return s.touch(id)
}

func (s *SessionStore) AppendToolCall(id string, rec domain.ToolCallRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := s.requireSession(id); err != nil {
		return err
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.sql.Exec(
		"INSERT INTO tool_calls (session_id, handle, input, output, success, error, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, rec.Handle, rec.Input, rec.Output, success, rec.Error, fmtTime(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("inserting tool call: %w", err)
	}
	return s.touch(id)
}

func (s *SessionStore) MergeEntities(id string, ents extract.Entities) error {
	var raw string
	err := s.db.sql.QueryRow("SELECT order_numbers FROM sessions WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading order numbers: %w", err)
	}

	var existing []string
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return fmt.Errorf("decoding order numbers: %w", err)
	}
	merged := mergeUnique(existing, ents.OrderNumbers)

	buf, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding order numbers: %w", err)
	}
	_, err = s.db.sql.Exec("UPDATE sessions SET order_numbers = ?, updated_at = ? WHERE id = ?",
		string(buf), fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating order numbers: %w", err)
	}
	return nil
}

func (s *SessionStore) AppendIntent(id string, it domain.Intent) error {
	var raw string
	err := s.db.sql.QueryRow("SELECT intent_history FROM sessions WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading intent history: %w", err)
	}

	var history []domain.Intent
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return fmt.Errorf("decoding intent history: %w", err)
	}
	history = append(history, it)

	buf, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding intent history: %w", err)
	}
	_, err = s.db.sql.Exec("UPDATE sessions SET intent_history = ?, updated_at = ? WHERE id = ?",
		string(buf), fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating intent history: %w", err)
	}
	return nil
}

func (s *SessionStore) SetHandler(id string, h domain.HandlerID) error {
	if err := s.requireSession(id); err != nil {
		return err
	}
	_, err := s.db.sql.Exec("UPDATE sessions SET current_handler = ?, updated_at = ? WHERE id = ?",
		string(h), fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating handler: %w", err)
	}
	return nil
}

func (s *SessionStore) Escalate(id, reason string) error {
	if err := s.requireSession(id); err != nil {
		return err
	}
	// No-op when already escalated: the WHERE clause keeps the first
	// reason and the ESCALATED status terminal.
	_, err := s.db.sql.Exec(`
		UPDATE sessions SET status = ?, escalated = 1, escalation_reason = ?, updated_at = ?
		WHERE id = ? AND escalated = 0`,
		string(domain.StatusEscalated), reason, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("escalating session: %w", err)
	}
	return nil
}

func (s *SessionStore) SetEscalationSummary(id string, summary *domain.EscalationSummary) error {
	if err := s.requireSession(id); err != nil {
		return err
	}
	buf, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding escalation summary: %w", err)
	}
	_, err = s.db.sql.Exec(`
		UPDATE sessions SET escalation_summary = ?, updated_at = ?
		WHERE id = ? AND escalated = 1 AND escalation_summary IS NULL`,
		string(buf), fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating escalation summary: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear() {
	if _, err := s.db.sql.Exec("DELETE FROM sessions"); err != nil {
		s.db.log.Error().Err(err).Msg("clearing sessions")
	}
}

func (s *SessionStore) requireSession(id string) error {
	var one int
	err := s.db.sql.QueryRow("SELECT 1 FROM sessions WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	return nil
}

func (s *SessionStore) touch(id string) error {
	if _, err := s.db.sql.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?",
		fmtTime(time.Now()), id); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// mergeUnique appends items not already present, keeping first-seen order.
func mergeUnique(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}
