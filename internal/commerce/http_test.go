package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPToolClient_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tools/invoke", r.URL.Path)

		var req CallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "get_order", req.Handle)

		json.NewEncoder(w).Encode(CallResult{Success: true, Data: `{"status":"shipped"}`})
	}))
	defer srv.Close()

	c := NewHTTPToolClient(srv.URL, "")
	res, err := c.Invoke(context.Background(), CallRequest{Handle: "get_order", Input: `{"order":"#1"}`})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"status":"shipped"}`, res.Data)
}

func TestHTTPToolClient_Invoke_FailureResultPassedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CallResult{Success: false, Error: "order not found"})
	}))
	defer srv.Close()

	c := NewHTTPToolClient(srv.URL, "")
	res, err := c.Invoke(context.Background(), CallRequest{Handle: "get_order"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "order not found", res.Error)
}
