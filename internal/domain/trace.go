package domain

import "time"

// EventType classifies a trace event.
type EventType string

const (
	EventMessage    EventType = "MESSAGE"
	EventRouting    EventType = "ROUTING"
	EventToolCall   EventType = "TOOL_CALL"
	EventEscalation EventType = "ESCALATION"
)

// TraceEvent is one immutable, timestamped fact about a session.
// Data holds the type-specific payload (MessageData, RoutingData,
// ToolCallData, or EscalationData). The tracer never inspects it.
type TraceEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// MessageData is the payload for MESSAGE events.
type MessageData struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// RoutingData is the payload for ROUTING events.
type RoutingData struct {
	From   HandlerID `json:"from,omitempty"`
	To     HandlerID `json:"to"`
	Intent Intent    `json:"intent"`
}

// ToolCallData is the payload for TOOL_CALL events.
type ToolCallData struct {
	Handle  string `json:"handle"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EscalationData is the payload for ESCALATION events.
type EscalationData struct {
	Reason  string             `json:"reason"`
	Summary *EscalationSummary `json:"summary,omitempty"`
}
