package responder

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	GenerateFunc func(ctx context.Context, req Request) (*Response, error)
	Requests     []Request
}

func (m *MockClient) Generate(ctx context.Context, req Request) (*Response, error) {
	m.Requests = append(m.Requests, req)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &Response{Reply: "mock reply"}, nil
}
