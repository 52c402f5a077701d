package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPToolClient forwards tool calls to the commerce tool service.
type HTTPToolClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPToolClient creates a tool client for the given service root.
func NewHTTPToolClient(baseURL, apiKey string) *HTTPToolClient {
	return &HTTPToolClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPToolClient) Invoke(ctx context.Context, req CallRequest) (*CallResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal tool call: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/tools/invoke", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create tool call request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tool call response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tool service error (%d): %s", resp.StatusCode, string(body))
	}

	var out CallResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse tool call response: %w", err)
	}
	return &out, nil
}
