package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/extract"
)

// MemoryStore is the in-memory Store implementation. Sessions are
// bounded by process lifetime; there is no TTL or eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

func (s *MemoryStore) Create(customer domain.Customer) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		Customer:  customer,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return snapshot(sess), nil
}

func (s *MemoryStore) Get(id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(sess), nil
}

func (s *MemoryStore) AppendMessage(id string, msg domain.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return s.mutate(id, func(sess *domain.Session) {
		sess.Messages = append(sess.Messages, msg)
	})
}

func (s *MemoryStore) AppendToolCall(id string, rec domain.ToolCallRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return s.mutate(id, func(sess *domain.Session) {
		sess.ToolCalls = append(sess.ToolCalls, rec)
	})
}

func (s *MemoryStore) MergeEntities(id string, ents extract.Entities) error {
	return s.mutate(id, func(sess *domain.Session) {
		sess.Context.MentionedOrderNumbers = mergeUnique(
			sess.Context.MentionedOrderNumbers, ents.OrderNumbers)
	})
}

func (s *MemoryStore) AppendIntent(id string, it domain.Intent) error {
	return s.mutate(id, func(sess *domain.Session) {
		sess.Context.IntentHistory = append(sess.Context.IntentHistory, it)
	})
}

func (s *MemoryStore) SetHandler(id string, h domain.HandlerID) error {
	return s.mutate(id, func(sess *domain.Session) {
		sess.Context.CurrentHandler = h
	})
}

func (s *MemoryStore) Escalate(id, reason string) error {
	return s.mutate(id, func(sess *domain.Session) {
		if sess.Context.Escalated {
			return
		}
		next, err := domain.Transition(sess.Status, domain.StatusEscalated)
		if err != nil {
			return
		}
		sess.Status = next
		sess.Context.Escalated = true
		sess.Context.EscalationReason = reason
	})
}

func (s *MemoryStore) SetEscalationSummary(id string, summary *domain.EscalationSummary) error {
	return s.mutate(id, func(sess *domain.Session) {
		if !sess.Context.Escalated || sess.Context.EscalationSummary != nil {
			return
		}
		sess.Context.EscalationSummary = summary
	})
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.sessions = make(map[string]*domain.Session)
	s.mu.Unlock()
}

func (s *MemoryStore) mutate(id string, fn func(*domain.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(sess)
	sess.UpdatedAt = time.Now()
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

// snapshot deep-copies a session so callers never hold a writable
// reference into the store.
func snapshot(sess *domain.Session) *domain.Session {
	out := *sess
	out.Messages = append([]domain.Message(nil), sess.Messages...)
	out.ToolCalls = append([]domain.ToolCallRecord(nil), sess.ToolCalls...)
	out.Context.MentionedOrderNumbers = append([]string(nil), sess.Context.MentionedOrderNumbers...)
	out.Context.IntentHistory = append([]domain.Intent(nil), sess.Context.IntentHistory...)
	if sess.Context.EscalationSummary != nil {
		sum := *sess.Context.EscalationSummary
		out.Context.EscalationSummary = &sum
	}
	return &out
}
