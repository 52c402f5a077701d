package domain

import "time"

// ActionType classifies what a dynamic rule does when it matches.
type ActionType string

const (
	ActionEscalate       ActionType = "ESCALATE"
	ActionBlock          ActionType = "BLOCK"
	ActionRedirect       ActionType = "REDIRECT"
	ActionModifyResponse ActionType = "MODIFY_RESPONSE"
)

// RuleAction is the effect of a matched dynamic rule.
type RuleAction struct {
	Type   ActionType `json:"type"`
	Reason string     `json:"reason,omitempty"`
	Target HandlerID  `json:"target,omitempty"` // REDIRECT only
	Tag    string     `json:"tag,omitempty"`    // MODIFY_RESPONSE marker, e.g. NEEDS_REVIEW
}

// DynamicRule is an operator-authored routing/escalation override,
// parsed from a natural-language prompt. The original prompt is kept
// for audit. Keywords are lowercase; an active rule always has at
// least one keyword.
type DynamicRule struct {
	ID        string     `json:"id"`
	Prompt    string     `json:"prompt"`
	Keywords  []string   `json:"keywords"`
	Action    RuleAction `json:"action"`
	CreatedAt time.Time  `json:"createdAt"`
	Active    bool       `json:"active"`
}
