package domain

// HandlerID names one of the specialized conversational handlers.
// The set is closed: handlers are declared at startup and routing only
// ever targets a declared handler.
type HandlerID string

const (
	HandlerOrders        HandlerID = "orders"
	HandlerReturns       HandlerID = "returns"
	HandlerSubscriptions HandlerID = "subscriptions"
	HandlerGeneral       HandlerID = "general"
)

// Handler describes a specialized responder: the intents it owns in
// the routing table, additional intents it can keep servicing for
// session continuity, and the commerce tool handles it may invoke.
type Handler struct {
	ID      HandlerID `json:"id"`
	Name    string    `json:"name"`
	Intents []Intent  `json:"intents"`
	Related []Intent  `json:"related,omitempty"`
	Tools   []string  `json:"tools,omitempty"`

	// EscalateOnToolFailure marks sessions for escalation after a
	// retried tool call fails again.
	EscalateOnToolFailure bool `json:"escalateOnToolFailure,omitempty"`
}

// CanService reports whether the handler can service the given intent,
// either as an owned or a related intent.
func (h Handler) CanService(intent Intent) bool {
	for _, it := range h.Intents {
		if it == intent {
			return true
		}
	}
	for _, it := range h.Related {
		if it == intent {
			return true
		}
	}
	return false
}

// AllowsTool reports whether the handler may invoke the given tool handle.
func (h Handler) AllowsTool(handle string) bool {
	for _, t := range h.Tools {
		if t == handle {
			return true
		}
	}
	return false
}
