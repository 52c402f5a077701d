// Package session owns the mutable state of every conversation. All
// session mutation goes through a Store; no other component holds a
// writable reference to session state.
package session

import (
	"errors"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/extract"
)

// ErrNotFound is returned for operations referencing an unknown
// session id. Missing sessions are never silently created.
var ErrNotFound = errors.New("session not found")

// Store is the session memory. Implementations must be safe for
// concurrent use across sessions; callers serialize per-session
// message processing (the orchestrator holds a per-session lock).
type Store interface {
	// Create creates a new session for a customer and returns it.
	// Two calls never return the same id within a process run.
	Create(customer domain.Customer) (*domain.Session, error)

	// Get returns a snapshot of a session.
	Get(id string) (*domain.Session, error)

	// AppendMessage appends one conversational turn.
	AppendMessage(id string, msg domain.Message) error

	// AppendToolCall appends one tool call record.
	AppendToolCall(id string, rec domain.ToolCallRecord) error

	// MergeEntities set-unions extracted entities into the session
	// context, preserving first-seen order.
	MergeEntities(id string, ents extract.Entities) error

	// AppendIntent records a classified intent in the history.
	AppendIntent(id string, it domain.Intent) error

	// SetHandler records the currently active handler.
	SetHandler(id string, h domain.HandlerID) error

	// Escalate flips the session to ESCALATED with the given reason.
	// Escalating an already escalated session is a no-op. Summary
	// attachment is a separate step so a summary-construction failure
	// can never prevent the flag from being set.
	Escalate(id, reason string) error

	// SetEscalationSummary attaches the handoff summary to an already
	// escalated session. No-op if a summary is already present.
	SetEscalationSummary(id string, summary *domain.EscalationSummary) error

	// Clear drops all sessions. Test/reset hook.
	Clear()
}
