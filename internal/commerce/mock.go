package commerce

import "context"

// MockToolClient is a test double for ToolClient.
type MockToolClient struct {
	InvokeFunc func(ctx context.Context, req CallRequest) (*CallResult, error)
	Calls      []CallRequest
}

func (m *MockToolClient) Invoke(ctx context.Context, req CallRequest) (*CallResult, error) {
	m.Calls = append(m.Calls, req)
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, req)
	}
	return &CallResult{Success: true, Data: `{}`}, nil
}
