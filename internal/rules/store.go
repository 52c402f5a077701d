package rules

import (
	"errors"
	"strings"
	"sync"

	"github.com/lookfor-ai/maestro/internal/domain"
)

// ErrRuleNotFound is returned when a rule id does not exist.
var ErrRuleNotFound = errors.New("rule not found")

// Store is the dynamic rule collection consulted for every inbound
// message. Shared read-mostly across sessions; implementations must be
// safe for concurrent CheckMessage against Add/Deactivate.
type Store interface {
	// Add parses the prompt and stores the resulting rule. Prompts
	// with no extractable keywords are rejected, nothing is stored.
	Add(prompt string) (*domain.DynamicRule, error)

	// Deactivate soft-deletes a rule. The rule stays listed for audit
	// but no longer matches messages.
	Deactivate(id string) error

	// List returns all rules, active and inactive, insertion order.
	List() []domain.DynamicRule

	// CheckMessage returns the first active rule (insertion order)
	// with at least one keyword hit in the message, or nil.
	CheckMessage(text string) *domain.DynamicRule

	// Clear drops all rules. Test/reset hook.
	Clear()
}

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	parser Parser

	mu    sync.RWMutex
	rules []*domain.DynamicRule
}

// NewMemoryStore creates an in-memory rule store backed by the given
// parser. A nil parser defaults to the heuristic one.
func NewMemoryStore(parser Parser) *MemoryStore {
	if parser == nil {
		parser = NewHeuristicParser()
	}
	return &MemoryStore{parser: parser}
}

func (s *MemoryStore) Add(prompt string) (*domain.DynamicRule, error) {
	rule, err := s.parser.Parse(prompt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rules = append(s.rules, rule)
	s.mu.Unlock()

	out := *rule
	return &out, nil
}

func (s *MemoryStore) Deactivate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.ID == id {
			r.Active = false
			return nil
		}
	}
	return ErrRuleNotFound
}

func (s *MemoryStore) List() []domain.DynamicRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DynamicRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = *r
	}
	return out
}

// CheckMessage is deliberately simpler than intent classification:
// first rule with any keyword hit wins, no scoring. Operators reason
// about rules in the order they added them.
func (s *MemoryStore) CheckMessage(text string) *domain.DynamicRule {
	lower := strings.ToLower(text)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if !r.Active {
			continue
		}
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				out := *r
				return &out
			}
		}
	}
	return nil
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.rules = nil
	s.mu.Unlock()
}
