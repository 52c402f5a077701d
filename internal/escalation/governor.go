// Package escalation decides when a conversation must stop receiving
// automated replies and be handed to a human.
package escalation

import (
	"fmt"
	"strings"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/logging"
)

// handoffPhrases trip an escalation whenever one occurs in a message,
// case-insensitive.
var handoffPhrases = []string{
	"human",
	"manager",
	"supervisor",
	"real person",
	"speak to",
	"talk to",
	"transfer to",
}

// distinctIntentLimit is the intent-diversity threshold: a session
// whose history holds this many distinct intents escalates.
const distinctIntentLimit = 3

// Decision is the outcome of one governor evaluation.
type Decision struct {
	Escalate bool
	Reason   string
	RuleTag  string
}

// Governor evaluates escalation triggers. The session state machine is
// one-way: once a session escalates it never returns to ACTIVE; the
// orchestrator short-circuits escalated sessions before the governor
// runs again.
type Governor struct {
	log *logging.Logger
}

// NewGovernor creates a governor.
func NewGovernor(log *logging.Logger) *Governor {
	return &Governor{log: log.Sub("escalation")}
}

// Evaluate checks the triggers in fixed order, first hit wins:
// explicit handoff phrase, ESCALATE-action rule match, intent
// diversity. The session snapshot must already include the current
// message's intent in its history.
func (g *Governor) Evaluate(sess *domain.Session, text string, rule *domain.DynamicRule) Decision {
	lower := strings.ToLower(text)
	for _, phrase := range handoffPhrases {
		if strings.Contains(lower, phrase) {
			g.log.Info().Str("sessionId", sess.ID).Str("phrase", phrase).Msg("explicit handoff request")
			return Decision{Escalate: true, Reason: fmt.Sprintf("customer asked for a human (%q)", phrase)}
		}
	}

	if rule != nil && rule.Action.Type == domain.ActionEscalate {
		g.log.Info().Str("sessionId", sess.ID).Str("ruleId", rule.ID).Msg("escalation rule matched")
		reason := rule.Action.Reason
		if reason == "" {
			reason = "dynamic rule " + rule.ID
		}
		return Decision{Escalate: true, Reason: reason, RuleTag: rule.Action.Tag}
	}

	if distinct := sess.Context.DistinctIntents(); len(distinct) >= distinctIntentLimit {
		g.log.Info().Str("sessionId", sess.ID).Int("distinctIntents", len(distinct)).Msg("intent diversity threshold reached")
		return Decision{Escalate: true, Reason: fmt.Sprintf("conversation spans %d distinct topics", len(distinct))}
	}

	return Decision{}
}

// BuildSummary assembles the human-handoff record from the session
// snapshot. It never fails; missing fields stay zero.
func (g *Governor) BuildSummary(sess *domain.Session, ruleTag string) *domain.EscalationSummary {
	return &domain.EscalationSummary{
		SessionID:             sess.ID,
		CustomerEmail:         sess.Customer.Email,
		MessageCount:          len(sess.Messages),
		ToolCallCount:         len(sess.ToolCalls),
		DistinctIntents:       sess.Context.DistinctIntents(),
		MentionedOrderNumbers: sess.Context.MentionedOrderNumbers,
		CurrentHandler:        sess.Context.CurrentHandler,
		RuleTag:               ruleTag,
	}
}
