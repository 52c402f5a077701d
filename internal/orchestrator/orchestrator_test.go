package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lookfor-ai/maestro/internal/commerce"
	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/handler"
	"github.com/lookfor-ai/maestro/internal/logging"
	"github.com/lookfor-ai/maestro/internal/responder"
	"github.com/lookfor-ai/maestro/internal/rules"
	"github.com/lookfor-ai/maestro/internal/session"
	"github.com/lookfor-ai/maestro/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	orch   *Orchestrator
	gen    *responder.MockClient
	tools  *commerce.MockToolClient
	memory *session.MemoryStore
	tracer *trace.MemoryTracer
	rules  rules.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")
	f := &fixture{
		gen:    &responder.MockClient{},
		tools:  &commerce.MockToolClient{},
		memory: session.NewMemoryStore(),
		tracer: trace.NewMemoryTracer(),
		rules:  rules.NewMemoryStore(nil),
	}
	f.orch = New(f.memory, f.rules, f.tracer, handler.Defaults(), f.gen, f.tools, log)
	return f
}

func (f *fixture) start(t *testing.T) string {
	t.Helper()
	sess, err := f.orch.StartSession(domain.Customer{Email: "baki@lookfor.ai", FirstName: "Baki"})
	require.NoError(t, err)
	return sess.ID
}

func (f *fixture) eventsOfType(t *testing.T, id string, et domain.EventType) []domain.TraceEvent {
	t.Helper()
	tl, ok := f.tracer.Get(id)
	require.True(t, ok)
	var out []domain.TraceEvent
	for _, e := range tl {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func TestProcess_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Process(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestProcess_OrderStatusScenario(t *testing.T) {
	f := newFixture(t)
	f.gen.GenerateFunc = func(_ context.Context, _ responder.Request) (*responder.Response, error) {
		return &responder.Response{Reply: "Order #NP2001002 shipped yesterday."}, nil
	}
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "Where is my order #NP2001002?")
	require.NoError(t, err)

	assert.Equal(t, domain.IntentOrderStatus, res.Intent)
	assert.Equal(t, domain.HandlerOrders, res.Handler)
	assert.False(t, res.Escalated)
	assert.Equal(t, "Order #NP2001002 shipped yesterday.", res.Message)

	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"#NP2001002"}, sess.Context.MentionedOrderNumbers)
	assert.Equal(t, domain.HandlerOrders, sess.Context.CurrentHandler)
	require.Len(t, sess.Messages, 2)

	routing := f.eventsOfType(t, id, domain.EventRouting)
	require.Len(t, routing, 1)
	data := routing[0].Data.(domain.RoutingData)
	assert.Equal(t, domain.IntentOrderStatus, data.Intent)
	assert.Equal(t, domain.HandlerOrders, data.To)
}

func TestProcess_ExplicitHumanRequestEscalates(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "I want to speak to a HUMAN")
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	assert.Equal(t, EscalatedAck, res.Message)
	assert.Empty(t, f.gen.Requests, "generator must not run on escalation")

	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, sess.Status)
	require.NotNil(t, sess.Context.EscalationSummary)
	assert.Equal(t, "baki@lookfor.ai", sess.Context.EscalationSummary.CustomerEmail)

	require.Len(t, f.eventsOfType(t, id, domain.EventEscalation), 1)
}

func TestProcess_EscalatedSessionShortCircuits(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	_, err := f.orch.Process(context.Background(), id, "get me a manager")
	require.NoError(t, err)

	res, err := f.orch.Process(context.Background(), id, "Where is my order #1?")
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	assert.Equal(t, EscalatedAck, res.Message)
	assert.Empty(t, f.gen.Requests)
	assert.Empty(t, f.tools.Calls)

	// No classification happened: the second message added no intent.
	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	assert.Len(t, sess.Context.IntentHistory, 1)
	assert.Equal(t, domain.StatusEscalated, sess.Status, "escalation is monotonic")
}

func TestProcess_IntentDiversityEscalatesOnThirdDistinct(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "I want to cancel my subscription")
	require.NoError(t, err)
	assert.False(t, res.Escalated)
	assert.Equal(t, domain.IntentSubscriptionCancel, res.Intent)

	res, err = f.orch.Process(context.Background(), id, "Actually, where is my order?")
	require.NoError(t, err)
	assert.False(t, res.Escalated)
	assert.Equal(t, domain.IntentOrderStatus, res.Intent)

	res, err = f.orch.Process(context.Background(), id, "I need a refund")
	require.NoError(t, err)
	assert.True(t, res.Escalated, "third distinct intent escalates regardless of content")

	sum, err := f.orch.Summary(id)
	require.NoError(t, err)
	assert.Len(t, sum.DistinctIntents, 3)
}

func TestProcess_RepeatedIntentDoesNotEscalate(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	for _, msg := range []string{"where is my order", "order status please", "has my order shipped"} {
		res, err := f.orch.Process(context.Background(), id, msg)
		require.NoError(t, err)
		assert.False(t, res.Escalated)
	}
}

func TestProcess_BlockRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.rules.Add("Block all refund requests over $500")
	require.NoError(t, err)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "I want a refund")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.False(t, res.Escalated)
	assert.Empty(t, f.gen.Requests, "blocked messages skip the generator")

	routing := f.eventsOfType(t, id, domain.EventRouting)
	require.Len(t, routing, 1, "blocked decisions are still traced")
}

func TestProcess_EscalateRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.rules.Add("When a customer mentions damaged items, escalate immediately")
	require.NoError(t, err)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "my package arrived damaged")
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	assert.Empty(t, f.gen.Requests)
}

func TestProcess_RedirectRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.rules.Add("For wholesale pricing requests, route to the general handler")
	require.NoError(t, err)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "do you do wholesale pricing?")
	require.NoError(t, err)
	assert.Equal(t, domain.HandlerGeneral, res.Handler)
}

func TestProcess_ToolRound(t *testing.T) {
	f := newFixture(t)
	round := 0
	f.gen.GenerateFunc = func(_ context.Context, req responder.Request) (*responder.Response, error) {
		round++
		if round == 1 {
			return &responder.Response{
				ToolRequests: []responder.ToolRequest{{Handle: "get_order", Input: `{"order":"#1"}`}},
			}, nil
		}
		return &responder.Response{Reply: "It shipped on Monday."}, nil
	}
	f.tools.InvokeFunc = func(_ context.Context, req commerce.CallRequest) (*commerce.CallResult, error) {
		return &commerce.CallResult{Success: true, Data: `{"status":"shipped"}`}, nil
	}
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "where is my order #1")
	require.NoError(t, err)
	assert.Equal(t, "It shipped on Monday.", res.Message)
	assert.Equal(t, []string{"get_order"}, res.ToolsCalled)

	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	require.Len(t, sess.ToolCalls, 1)
	assert.True(t, sess.ToolCalls[0].Success)

	tc := f.eventsOfType(t, id, domain.EventToolCall)
	require.Len(t, tc, 1)
	assert.True(t, tc[0].Data.(domain.ToolCallData).Success)
}

func TestProcess_ToolNotAllowedForHandler(t *testing.T) {
	f := newFixture(t)
	round := 0
	f.gen.GenerateFunc = func(_ context.Context, _ responder.Request) (*responder.Response, error) {
		round++
		if round == 1 {
			return &responder.Response{
				ToolRequests: []responder.ToolRequest{{Handle: "issue_refund"}},
			}, nil
		}
		return &responder.Response{Reply: "done"}, nil
	}
	id := f.start(t)

	// order-status routes to the orders handler, which may not issue refunds.
	_, err := f.orch.Process(context.Background(), id, "where is my order")
	require.NoError(t, err)
	assert.Empty(t, f.tools.Calls, "disallowed tools never reach the tool client")

	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	require.Len(t, sess.ToolCalls, 1)
	assert.False(t, sess.ToolCalls[0].Success)
	assert.Contains(t, sess.ToolCalls[0].Error, "not allowed")
}

func TestProcess_RepeatedToolFailureEscalates(t *testing.T) {
	f := newFixture(t)
	f.gen.GenerateFunc = func(_ context.Context, _ responder.Request) (*responder.Response, error) {
		return &responder.Response{
			ToolRequests: []responder.ToolRequest{{Handle: "get_order"}},
		}, nil
	}
	f.tools.InvokeFunc = func(_ context.Context, _ commerce.CallRequest) (*commerce.CallResult, error) {
		return &commerce.CallResult{Success: false, Error: "upstream down"}, nil
	}
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "where is my order")
	require.NoError(t, err)
	assert.True(t, res.Escalated, "orders handler escalates on repeated tool failure")
	assert.Len(t, f.tools.Calls, 2, "one retry before giving up")

	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEscalated, sess.Status)
	assert.Contains(t, sess.Context.EscalationReason, "get_order")
}

func TestProcess_GeneratorFailureEscalatesAfterRetry(t *testing.T) {
	f := newFixture(t)
	f.gen.GenerateFunc = func(_ context.Context, _ responder.Request) (*responder.Response, error) {
		return nil, errors.New("timeout")
	}
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "where is my order")
	require.NoError(t, err, "generator failure is recoverable, never fatal")
	assert.True(t, res.Escalated)
	assert.Len(t, f.gen.Requests, 2, "one retry before escalating")
}

func TestProcess_ModifyResponseTagPassedToGenerator(t *testing.T) {
	f := newFixture(t)
	_, err := f.rules.Add("When a customer mentions influencer collaborations, mark as 'marketing_lead'")
	require.NoError(t, err)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "I'd like to discuss influencer collaborations")
	require.NoError(t, err)
	assert.Equal(t, "MARKETING_LEAD", res.RuleTag)
	require.NotEmpty(t, f.gen.Requests)
	assert.Equal(t, "MARKETING_LEAD", f.gen.Requests[0].ResponseTag)
}

func TestProcess_SessionContinuity(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	res, err := f.orch.Process(context.Background(), id, "I'd like to return these shoes")
	require.NoError(t, err)
	require.Equal(t, domain.HandlerReturns, res.Handler)

	res, err = f.orch.Process(context.Background(), id, "also, where is my order #9?")
	require.NoError(t, err)
	assert.Equal(t, domain.HandlerReturns, res.Handler, "order-status follow-up stays with returns")
}

func TestSummary_NotEscalated(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	_, err := f.orch.Summary(id)
	assert.Error(t, err)
}

func TestProcess_ConcurrentSameSessionSerialized(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Process(context.Background(), id, "where is my order")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := f.orch.Session(id)
	require.NoError(t, err)
	assert.Len(t, sess.Context.IntentHistory, 10)
	assert.Len(t, sess.Messages, 20, "each turn appends customer and agent messages")
}
