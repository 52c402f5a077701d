package escalation

import (
	"testing"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGovernor() *Governor {
	return NewGovernor(logging.New(nil, "silent"))
}

func activeSession() *domain.Session {
	return &domain.Session{
		ID:       "s1",
		Customer: domain.Customer{Email: "baki@lookfor.ai"},
		Status:   domain.StatusActive,
	}
}

func TestEvaluate_ExplicitPhrases(t *testing.T) {
	g := testGovernor()
	for _, text := range []string{
		"I want to talk to a HUMAN",
		"get me your manager",
		"can I speak to someone",
		"I need a real person",
		"transfer to support please",
	} {
		d := g.Evaluate(activeSession(), text, nil)
		assert.True(t, d.Escalate, "expected escalation for %q", text)
		assert.NotEmpty(t, d.Reason)
	}
}

func TestEvaluate_EscalateRule(t *testing.T) {
	g := testGovernor()
	rule := &domain.DynamicRule{
		ID: "r1",
		Action: domain.RuleAction{
			Type:   domain.ActionEscalate,
			Reason: "escalate damaged item reports",
			Tag:    "DAMAGED",
		},
	}
	d := g.Evaluate(activeSession(), "my parcel arrived damaged", rule)
	assert.True(t, d.Escalate)
	assert.Equal(t, "escalate damaged item reports", d.Reason)
	assert.Equal(t, "DAMAGED", d.RuleTag)
}

func TestEvaluate_NonEscalateRuleIgnored(t *testing.T) {
	g := testGovernor()
	rule := &domain.DynamicRule{ID: "r1", Action: domain.RuleAction{Type: domain.ActionBlock}}
	d := g.Evaluate(activeSession(), "my parcel arrived damaged", rule)
	assert.False(t, d.Escalate)
}

func TestEvaluate_IntentDiversity(t *testing.T) {
	g := testGovernor()

	sess := activeSession()
	sess.Context.IntentHistory = []domain.Intent{
		domain.IntentSubscriptionCancel,
		domain.IntentOrderStatus,
	}
	assert.False(t, g.Evaluate(sess, "where is it", nil).Escalate, "two distinct intents stay below the limit")

	sess.Context.IntentHistory = append(sess.Context.IntentHistory, domain.IntentRefundRequest)
	d := g.Evaluate(sess, "I need money back now", nil)
	assert.True(t, d.Escalate)
	assert.Contains(t, d.Reason, "3 distinct topics")
}

func TestEvaluate_RepeatedIntentIsNotDiversity(t *testing.T) {
	g := testGovernor()
	sess := activeSession()
	sess.Context.IntentHistory = []domain.Intent{
		domain.IntentOrderStatus,
		domain.IntentOrderStatus,
		domain.IntentOrderStatus,
	}
	assert.False(t, g.Evaluate(sess, "still waiting on my package", nil).Escalate)
}

func TestEvaluate_PhraseBeatsRule(t *testing.T) {
	g := testGovernor()
	rule := &domain.DynamicRule{
		ID:     "r1",
		Action: domain.RuleAction{Type: domain.ActionEscalate, Reason: "rule reason", Tag: "TAG"},
	}
	d := g.Evaluate(activeSession(), "let me talk to a manager", rule)
	require.True(t, d.Escalate)
	assert.NotEqual(t, "rule reason", d.Reason, "explicit phrase is checked first")
	assert.Empty(t, d.RuleTag)
}

func TestBuildSummary(t *testing.T) {
	g := testGovernor()
	sess := activeSession()
	sess.Messages = []domain.Message{{Text: "a"}, {Text: "b"}}
	sess.ToolCalls = []domain.ToolCallRecord{{Handle: "get_order"}}
	sess.Context.IntentHistory = []domain.Intent{domain.IntentOrderStatus, domain.IntentRefundRequest}
	sess.Context.MentionedOrderNumbers = []string{"#NP2001002"}
	sess.Context.CurrentHandler = domain.HandlerOrders

	sum := g.BuildSummary(sess, "VIP")
	assert.Equal(t, "s1", sum.SessionID)
	assert.Equal(t, "baki@lookfor.ai", sum.CustomerEmail)
	assert.Equal(t, 2, sum.MessageCount)
	assert.Equal(t, 1, sum.ToolCallCount)
	assert.Equal(t, []domain.Intent{domain.IntentOrderStatus, domain.IntentRefundRequest}, sum.DistinctIntents)
	assert.Equal(t, []string{"#NP2001002"}, sum.MentionedOrderNumbers)
	assert.Equal(t, domain.HandlerOrders, sum.CurrentHandler)
	assert.Equal(t, "VIP", sum.RuleTag)
}
