package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookfor-ai/maestro/internal/commerce"
	"github.com/lookfor-ai/maestro/internal/config"
	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/handler"
	"github.com/lookfor-ai/maestro/internal/logging"
	"github.com/lookfor-ai/maestro/internal/orchestrator"
	"github.com/lookfor-ai/maestro/internal/responder"
	"github.com/lookfor-ai/maestro/internal/rules"
	"github.com/lookfor-ai/maestro/internal/session"
	"github.com/lookfor-ai/maestro/internal/trace"
)

type env struct {
	ts   *httptest.Server
	orch *orchestrator.Orchestrator
	feed *trace.Fanout
}

func newEnv(t *testing.T, token string) *env {
	t.Helper()
	log := logging.New(nil, "silent")
	feed := trace.NewFanout(trace.NewMemoryTracer())
	orch := orchestrator.New(
		session.NewMemoryStore(),
		rules.NewMemoryStore(nil),
		feed,
		handler.Defaults(),
		&responder.MockClient{},
		&commerce.MockToolClient{},
		log,
	)

	cfg := config.GatewayConfig{Auth: config.GatewayAuth{Token: token}}
	gw := New(cfg, orch, log, WithFeed(feed))
	ts := httptest.NewServer(gw.Handler())
	t.Cleanup(ts.Close)
	return &env{ts: ts, orch: orch, feed: feed}
}

func (e *env) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *env) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *env) startSession(t *testing.T, email string) string {
	t.Helper()
	resp := e.post(t, "/session/start", "", map[string]string{"customerEmail": email})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.NotEmpty(t, body["sessionId"])
	return body["sessionId"]
}

func TestHealth(t *testing.T) {
	e := newEnv(t, "")
	resp := e.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
}

func TestSessionStart(t *testing.T) {
	e := newEnv(t, "")
	id1 := e.startSession(t, "baki@lookfor.ai")
	id2 := e.startSession(t, "baki@lookfor.ai")
	assert.NotEqual(t, id1, id2)
}

func TestSessionStart_MissingEmail(t *testing.T) {
	e := newEnv(t, "")
	resp := e.post(t, "/session/start", "", map[string]string{"firstName": "Baki"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "invalid_body", body.Error.Code)
}

func TestSessionMessage(t *testing.T) {
	e := newEnv(t, "")
	id := e.startSession(t, "baki@lookfor.ai")

	resp := e.post(t, "/session/"+id+"/message", "", map[string]string{
		"message": "Where is my order #NP2001002?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[orchestrator.Result](t, resp)
	assert.Equal(t, "mock reply", result.Message)
	assert.Equal(t, domain.IntentOrderStatus, result.Intent)
	assert.Equal(t, domain.HandlerOrders, result.Handler)
	assert.False(t, result.Escalated)
}

func TestSessionMessage_UnknownSession(t *testing.T) {
	e := newEnv(t, "")
	resp := e.post(t, "/session/nope/message", "", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "session_not_found", body.Error.Code)
}

func TestSessionMessage_Empty(t *testing.T) {
	e := newEnv(t, "")
	id := e.startSession(t, "baki@lookfor.ai")
	resp := e.post(t, "/session/"+id+"/message", "", map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionGet(t *testing.T) {
	e := newEnv(t, "")
	id := e.startSession(t, "baki@lookfor.ai")

	resp := e.post(t, "/session/"+id+"/message", "", map[string]string{
		"message": "Where is my order #NP2001002?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/session/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decode[domain.Session](t, resp)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, "baki@lookfor.ai", sess.Customer.Email)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, []string{"#NP2001002"}, sess.Context.MentionedOrderNumbers)
}

func TestSessionTrace(t *testing.T) {
	e := newEnv(t, "")
	id := e.startSession(t, "baki@lookfor.ai")

	resp := e.post(t, "/session/"+id+"/message", "", map[string]string{
		"message": "Where is my order #NP2001002?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/session/"+id+"/trace", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Events []domain.TraceEvent `json:"events"`
	}](t, resp)
	require.NotEmpty(t, body.Events)

	var routing int
	for _, evt := range body.Events {
		if evt.Type == domain.EventRouting {
			routing++
		}
	}
	assert.Equal(t, 1, routing)
}

func TestSessionTrace_UnknownSession(t *testing.T) {
	e := newEnv(t, "")
	resp := e.do(t, http.MethodGet, "/session/nope/trace", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionSummary(t *testing.T) {
	e := newEnv(t, "")
	id := e.startSession(t, "baki@lookfor.ai")

	// Not escalated yet
	resp := e.do(t, http.MethodGet, "/session/"+id+"/summary", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "not_escalated", body.Error.Code)

	mresp := e.post(t, "/session/"+id+"/message", "", map[string]string{
		"message": "Let me talk to a real person",
	})
	require.Equal(t, http.StatusOK, mresp.StatusCode)
	result := decode[orchestrator.Result](t, mresp)
	require.True(t, result.Escalated)

	resp = e.do(t, http.MethodGet, "/session/"+id+"/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[domain.EscalationSummary](t, resp)
	assert.Equal(t, id, sum.SessionID)
	assert.Equal(t, "baki@lookfor.ai", sum.CustomerEmail)
}

func TestRuleCreate(t *testing.T) {
	e := newEnv(t, "")
	resp := e.post(t, "/mas/update", "", map[string]string{
		"prompt": "If customer wants to cancel their subscription, escalate to a human",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rule := decode[domain.DynamicRule](t, resp)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, domain.ActionEscalate, rule.Action.Type)
	assert.True(t, rule.Active)
}

func TestRuleCreate_Unparseable(t *testing.T) {
	e := newEnv(t, "")
	resp := e.post(t, "/mas/update", "", map[string]string{"prompt": "!!! ???"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "rule_unparseable", body.Error.Code)
}

func TestRuleListAndDelete(t *testing.T) {
	e := newEnv(t, "")
	resp := e.post(t, "/mas/update", "", map[string]string{"prompt": "Block all refund requests"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rule := decode[domain.DynamicRule](t, resp)

	resp = e.do(t, http.MethodGet, "/mas/rules", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Rules []domain.DynamicRule `json:"rules"`
	}](t, resp)
	require.Len(t, list.Rules, 1)

	resp = e.do(t, http.MethodDelete, "/mas/rules/"+rule.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/mas/rules", "")
	list = decode[struct {
		Rules []domain.DynamicRule `json:"rules"`
	}](t, resp)
	require.Len(t, list.Rules, 1)
	assert.False(t, list.Rules[0].Active)
}

func TestRuleDelete_NotFound(t *testing.T) {
	e := newEnv(t, "")
	resp := e.do(t, http.MethodDelete, "/mas/rules/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "rule_not_found", body.Error.Code)
}

func TestManagementAuth(t *testing.T) {
	e := newEnv(t, "sekrit")

	// Missing token
	resp := e.do(t, http.MethodGet, "/mas/rules", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong token
	resp = e.do(t, http.MethodGet, "/mas/rules", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct token
	resp = e.do(t, http.MethodGet, "/mas/rules", "sekrit")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Session endpoints stay open
	resp = e.post(t, "/session/start", "", map[string]string{"customerEmail": "a@b.co"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv(t, "")
	resp := e.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "not_found", body.Error.Code)
}

func TestRuleBlockFlow(t *testing.T) {
	e := newEnv(t, "")

	resp := e.post(t, "/mas/update", "", map[string]string{"prompt": "Block all refund requests"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	id := e.startSession(t, "baki@lookfor.ai")
	resp = e.post(t, "/session/"+id+"/message", "", map[string]string{"message": "I want a refund"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[orchestrator.Result](t, resp)
	assert.True(t, result.Blocked)
	assert.False(t, result.Escalated)
}

func TestIntentDiversityEscalationOverHTTP(t *testing.T) {
	e := newEnv(t, "")
	id := e.startSession(t, "baki@lookfor.ai")

	msgs := []string{
		"I want to cancel my subscription",
		"Actually, where is my order?",
		"I need a refund",
	}
	var last orchestrator.Result
	for i, m := range msgs {
		resp := e.post(t, "/session/"+id+"/message", "", map[string]string{"message": m})
		require.Equal(t, http.StatusOK, resp.StatusCode, fmt.Sprintf("message %d", i))
		last = decode[orchestrator.Result](t, resp)
	}
	assert.True(t, last.Escalated)

	sess, err := e.orch.Session(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, sess.Status)
}
