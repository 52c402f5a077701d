// Package responder defines the contract with the external
// conversational-response generator. The generator decides free-text
// replies and tool invocation requests; the engine only consumes the
// contract and treats generator failures as recoverable.
package responder

import "context"

// Role constants for conversation turns sent to the generator.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request asks the generator for the next reply.
type Request struct {
	Handler  string    `json:"handler"`
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
	Tools    []string  `json:"tools,omitempty"`

	// ResponseTag is set by MODIFY_RESPONSE dynamic rules; the
	// generator is expected to adjust tone/content accordingly.
	ResponseTag string `json:"responseTag,omitempty"`
}

// ToolRequest is a generator request to invoke a commerce tool.
type ToolRequest struct {
	Handle string `json:"handle"`
	Input  string `json:"input,omitempty"` // JSON string
}

// Response is the generator's answer: a reply and zero or more tool
// invocation requests to perform before the reply is final.
type Response struct {
	Reply        string        `json:"reply"`
	ToolRequests []ToolRequest `json:"toolRequests,omitempty"`
}

// Client generates conversational replies. Implementations may call a
// remote LLM endpoint; errors are recoverable, never fatal.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
