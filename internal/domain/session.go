// Package domain contains the core types shared across the orchestration engine.
package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusEscalated Status = "ESCALATED"
)

// Transition validates a status change. The only legal transition is
// ACTIVE → ESCALATED; ESCALATED is terminal.
func Transition(from, to Status) (Status, error) {
	if from == to {
		return from, nil
	}
	if from == StatusActive && to == StatusEscalated {
		return to, nil
	}
	return from, fmt.Errorf("illegal session transition %s → %s", from, to)
}

// Role identifies who authored a message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// Customer is the person the conversation belongs to. Set once at
// session creation and never mutated.
type Customer struct {
	Email             string `json:"email"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	ShopifyCustomerID string `json:"shopifyCustomerId,omitempty"`
}

// Message is a single conversational turn.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCallRecord is the logged outcome of one commerce tool invocation.
type ToolCallRecord struct {
	Handle    string    `json:"handle"`
	Input     string    `json:"input,omitempty"`  // JSON string
	Output    string    `json:"output,omitempty"` // JSON string
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EscalationSummary is the structured handoff record built when a
// session escalates to a human.
type EscalationSummary struct {
	SessionID             string    `json:"sessionId"`
	CustomerEmail         string    `json:"customerEmail"`
	MessageCount          int       `json:"messageCount"`
	ToolCallCount         int       `json:"toolCallCount"`
	DistinctIntents       []Intent  `json:"distinctIntents"`
	MentionedOrderNumbers []string  `json:"mentionedOrderNumbers,omitempty"`
	CurrentHandler        HandlerID `json:"currentHandler,omitempty"`
	RuleTag               string    `json:"ruleTag,omitempty"`
}

// Context is the accumulated conversational state of a session.
type Context struct {
	// MentionedOrderNumbers keeps insertion order; duplicates are
	// dropped on merge.
	MentionedOrderNumbers []string           `json:"mentionedOrderNumbers,omitempty"`
	IntentHistory         []Intent           `json:"intentHistory,omitempty"`
	Escalated             bool               `json:"escalated"`
	EscalationReason      string             `json:"escalationReason,omitempty"`
	EscalationSummary     *EscalationSummary `json:"escalationSummary,omitempty"`
	CurrentHandler        HandlerID          `json:"currentHandler,omitempty"`
}

// DistinctIntents returns the unique intents seen so far, first-seen order.
func (c *Context) DistinctIntents() []Intent {
	seen := make(map[Intent]struct{}, len(c.IntentHistory))
	var out []Intent
	for _, it := range c.IntentHistory {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Session tracks one customer conversation.
type Session struct {
	ID        string           `json:"id"`
	Customer  Customer         `json:"customer"`
	Status    Status           `json:"status"`
	Messages  []Message        `json:"messages,omitempty"`
	ToolCalls []ToolCallRecord `json:"toolCalls,omitempty"`
	Context   Context          `json:"context"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
