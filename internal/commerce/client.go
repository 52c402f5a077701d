// Package commerce defines the contract with the outbound tool client
// that performs order and subscription operations against the commerce
// platform. The engine validates and logs every call; execution is
// external.
package commerce

import "context"

// CallRequest is one validated tool invocation.
type CallRequest struct {
	Handle string `json:"handle"`
	Input  string `json:"input,omitempty"` // JSON string
}

// CallResult is the verbatim outcome of a tool invocation. It is
// logged to the trace regardless of success.
type CallResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"` // JSON string
	Error   string `json:"error,omitempty"`
}

// ToolClient executes commerce tool calls.
type ToolClient interface {
	Invoke(ctx context.Context, req CallRequest) (*CallResult, error)
}
