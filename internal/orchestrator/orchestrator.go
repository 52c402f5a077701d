// Package orchestrator sequences the engine for each inbound message:
// entity extraction, intent classification, dynamic rule lookup,
// escalation, routing, response generation, tool execution, and the
// memory/trace writes that record all of it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lookfor-ai/maestro/internal/commerce"
	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/escalation"
	"github.com/lookfor-ai/maestro/internal/extract"
	"github.com/lookfor-ai/maestro/internal/handler"
	"github.com/lookfor-ai/maestro/internal/intent"
	"github.com/lookfor-ai/maestro/internal/logging"
	"github.com/lookfor-ai/maestro/internal/responder"
	"github.com/lookfor-ai/maestro/internal/routing"
	"github.com/lookfor-ai/maestro/internal/rules"
	"github.com/lookfor-ai/maestro/internal/session"
	"github.com/lookfor-ai/maestro/internal/trace"
)

// EscalatedAck is returned for every message on an escalated session.
const EscalatedAck = "I'm connecting you with our support team. Someone will be with you shortly."

// blockedReply is returned when a dynamic rule blocks automated handling.
const blockedReply = "I'm sorry, I can't help with that request automatically. Our support team can assist you directly."

// maxToolRounds bounds the generate→tools→generate loop per message.
const maxToolRounds = 3

// Result is the decision bundle returned to the caller for one message.
type Result struct {
	SessionID   string           `json:"sessionId"`
	Message     string           `json:"message"`
	Intent      domain.Intent    `json:"intent,omitempty"`
	Handler     domain.HandlerID `json:"handler,omitempty"`
	Escalated   bool             `json:"escalated"`
	Blocked     bool             `json:"blocked,omitempty"`
	ToolsCalled []string         `json:"toolsCalled,omitempty"`
	RuleTag     string           `json:"ruleTag,omitempty"`
}

// Orchestrator owns the engine components and serializes message
// processing per session. Messages for different sessions run in
// parallel; two messages for the same session never interleave.
type Orchestrator struct {
	memory   session.Store
	rules    rules.Store
	tracer   trace.Tracer
	governor *escalation.Governor
	router   *routing.Router
	handlers *handler.Registry
	gen      responder.Client
	tools    commerce.ToolClient
	log      *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires the engine together. All stores are explicit instances
// owned by the caller; there is no ambient global state.
func New(
	memory session.Store,
	ruleStore rules.Store,
	tracer trace.Tracer,
	handlers *handler.Registry,
	gen responder.Client,
	tools commerce.ToolClient,
	log *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		memory:   memory,
		rules:    ruleStore,
		tracer:   tracer,
		governor: escalation.NewGovernor(log),
		router:   routing.NewRouter(handlers, log),
		handlers: handlers,
		gen:      gen,
		tools:    tools,
		log:      log.Sub("orchestrator"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// StartSession creates a new conversation for a customer.
func (o *Orchestrator) StartSession(customer domain.Customer) (*domain.Session, error) {
	sess, err := o.memory.Create(customer)
	if err != nil {
		return nil, err
	}
	o.log.Info().Str("sessionId", sess.ID).Str("customer", customer.Email).Msg("session started")
	return sess, nil
}

// Session returns a session snapshot.
func (o *Orchestrator) Session(id string) (*domain.Session, error) {
	return o.memory.Get(id)
}

// Trace returns the session's event timeline.
func (o *Orchestrator) Trace(id string) ([]domain.TraceEvent, bool) {
	return o.tracer.Get(id)
}

// Summary returns the escalation summary, present only once escalated.
func (o *Orchestrator) Summary(id string) (*domain.EscalationSummary, error) {
	sess, err := o.memory.Get(id)
	if err != nil {
		return nil, err
	}
	if !sess.Context.Escalated || sess.Context.EscalationSummary == nil {
		return nil, fmt.Errorf("session %s is not escalated", id)
	}
	return sess.Context.EscalationSummary, nil
}

// Rules exposes the dynamic rule store to the management surface.
func (o *Orchestrator) Rules() rules.Store { return o.rules }

// Process handles one inbound customer message and returns the
// decision bundle. Calls for the same session are serialized.
func (o *Orchestrator) Process(ctx context.Context, sessionID, text string) (*Result, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := o.memory.Get(sessionID)
	if err != nil {
		return nil, err
	}
	log := o.log.Session(sessionID)

	if sess.Status == domain.StatusEscalated {
		// Escalation is terminal: acknowledge without classifying,
		// generating, or touching the tool client.
		o.recordMessage(sessionID, domain.RoleCustomer, text)
		o.recordMessage(sessionID, domain.RoleAgent, EscalatedAck)
		log.Debug().Msg("escalated session short-circuit")
		return &Result{SessionID: sessionID, Message: EscalatedAck, Escalated: true}, nil
	}

	o.recordMessage(sessionID, domain.RoleCustomer, text)
	if ents := extract.FromText(text); !ents.Empty() {
		if err := o.memory.MergeEntities(sessionID, ents); err != nil {
			return nil, err
		}
	}

	it := intent.Classify(text)
	if err := o.memory.AppendIntent(sessionID, it); err != nil {
		return nil, err
	}
	rule := o.rules.CheckMessage(text)

	snap, err := o.memory.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if d := o.governor.Evaluate(snap, text, rule); d.Escalate {
		o.escalate(sessionID, snap, d.Reason, d.RuleTag)
		return &Result{SessionID: sessionID, Message: EscalatedAck, Intent: it, Escalated: true}, nil
	}

	dec := o.router.Route(it, rule, snap.Context.CurrentHandler)
	o.tracer.Record(sessionID, domain.TraceEvent{
		Type: domain.EventRouting,
		Data: domain.RoutingData{From: snap.Context.CurrentHandler, To: dec.Target, Intent: it},
	})
	log.Info().Str("intent", string(it)).Str("handler", string(dec.Target)).Bool("blocked", dec.Blocked).Msg("routed")

	if dec.Blocked {
		o.recordMessage(sessionID, domain.RoleAgent, blockedReply)
		return &Result{SessionID: sessionID, Message: blockedReply, Intent: it, Blocked: true}, nil
	}

	if err := o.memory.SetHandler(sessionID, dec.Target); err != nil {
		return nil, err
	}
	h, ok := o.handlers.Get(dec.Target)
	if !ok {
		return nil, fmt.Errorf("handler %q not registered", dec.Target)
	}

	var ruleTag string
	if rule != nil && rule.Action.Type == domain.ActionModifyResponse {
		ruleTag = rule.Action.Tag
	}

	reply, toolsCalled, escalateReason, err := o.converse(ctx, log, sessionID, h, ruleTag)
	if err != nil {
		// The generator failed twice. Hand the conversation to a human
		// rather than leaving the customer without an answer.
		log.Error().Err(err).Msg("response generation failed, escalating")
		snap, _ = o.memory.Get(sessionID)
		o.escalate(sessionID, snap, "response generation failed: "+err.Error(), "")
		return &Result{SessionID: sessionID, Message: EscalatedAck, Intent: it, Handler: dec.Target, Escalated: true, ToolsCalled: toolsCalled}, nil
	}
	if escalateReason != "" {
		snap, _ = o.memory.Get(sessionID)
		o.escalate(sessionID, snap, escalateReason, "")
		return &Result{SessionID: sessionID, Message: EscalatedAck, Intent: it, Handler: dec.Target, Escalated: true, ToolsCalled: toolsCalled}, nil
	}

	o.recordMessage(sessionID, domain.RoleAgent, reply)
	return &Result{
		SessionID:   sessionID,
		Message:     reply,
		Intent:      it,
		Handler:     dec.Target,
		ToolsCalled: toolsCalled,
		RuleTag:     ruleTag,
	}, nil
}

// escalate sets the flag first, then attaches the summary and records
// the trace event. A summary problem can never undo the flag.
func (o *Orchestrator) escalate(sessionID string, snap *domain.Session, reason, ruleTag string) {
	if err := o.memory.Escalate(sessionID, reason); err != nil {
		o.log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to set escalation flag")
		return
	}
	sum := o.governor.BuildSummary(snap, ruleTag)
	if err := o.memory.SetEscalationSummary(sessionID, sum); err != nil {
		o.log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to attach escalation summary")
	}
	o.tracer.Record(sessionID, domain.TraceEvent{
		Type: domain.EventEscalation,
		Data: domain.EscalationData{Reason: reason, Summary: sum},
	})
	o.recordMessage(sessionID, domain.RoleAgent, EscalatedAck)
}

// converse runs the generate→tools loop. The external calls are
// awaited before any memory or trace write for that step, so a failed
// call never leaves a half-recorded step.
func (o *Orchestrator) converse(
	ctx context.Context,
	log *logging.Logger,
	sessionID string,
	h domain.Handler,
	ruleTag string,
) (reply string, toolsCalled []string, escalateReason string, err error) {
	snap, err := o.memory.Get(sessionID)
	if err != nil {
		return "", nil, "", err
	}
	conv := historyMessages(snap)

	for round := 0; round < maxToolRounds; round++ {
		resp, genErr := o.generate(ctx, responder.Request{
			Handler:     string(h.ID),
			Messages:    conv,
			Tools:       h.Tools,
			ResponseTag: ruleTag,
		})
		if genErr != nil {
			return "", toolsCalled, "", genErr
		}
		reply = resp.Reply

		if len(resp.ToolRequests) == 0 {
			return reply, toolsCalled, "", nil
		}

		var results string
		for _, tr := range resp.ToolRequests {
			if !h.AllowsTool(tr.Handle) {
				// Disallowed request from the generator: record and
				// surface to the next round, but it is not a tool
				// outage, so no escalation policy applies.
				log.Warn().Str("handle", tr.Handle).Str("handler", string(h.ID)).Msg("tool not allowed")
				rec := domain.ToolCallRecord{
					Handle: tr.Handle, Input: tr.Input,
					Error:     fmt.Sprintf("tool %q not allowed for handler %q", tr.Handle, h.ID),
					Timestamp: time.Now(),
				}
				o.recordToolCall(sessionID, rec)
				results += fmt.Sprintf("%s failed: %s\n", rec.Handle, rec.Error)
				continue
			}

			rec := o.invokeTool(ctx, log, sessionID, tr)
			toolsCalled = append(toolsCalled, tr.Handle)
			if rec.Success {
				results += fmt.Sprintf("%s: %s\n", rec.Handle, rec.Output)
				continue
			}
			results += fmt.Sprintf("%s failed: %s\n", rec.Handle, rec.Error)
			if h.EscalateOnToolFailure {
				return "", toolsCalled, fmt.Sprintf("repeated %s failure: %s", rec.Handle, rec.Error), nil
			}
		}

		if reply != "" {
			conv = append(conv, responder.Message{Role: responder.RoleAssistant, Content: reply})
		}
		conv = append(conv, responder.Message{Role: responder.RoleUser, Content: "Tool results:\n" + results})
	}
	return reply, toolsCalled, "", nil
}

// generate calls the response generator with a single retry.
func (o *Orchestrator) generate(ctx context.Context, req responder.Request) (*responder.Response, error) {
	resp, err := o.gen.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	o.log.Warn().Err(err).Msg("generator call failed, retrying once")
	return o.gen.Generate(ctx, req)
}

// invokeTool executes one validated tool call with a single retry and
// records the outcome verbatim. Memory and trace are written together,
// after the call resolves, so a failed call never leaves a
// half-recorded step.
func (o *Orchestrator) invokeTool(
	ctx context.Context,
	log *logging.Logger,
	sessionID string,
	tr responder.ToolRequest,
) domain.ToolCallRecord {
	rec := domain.ToolCallRecord{Handle: tr.Handle, Input: tr.Input, Timestamp: time.Now()}

	res, err := o.tools.Invoke(ctx, commerce.CallRequest{Handle: tr.Handle, Input: tr.Input})
	if err != nil || !res.Success {
		log.Warn().Str("handle", tr.Handle).Msg("tool call failed, retrying once")
		res, err = o.tools.Invoke(ctx, commerce.CallRequest{Handle: tr.Handle, Input: tr.Input})
	}
	switch {
	case err != nil:
		rec.Error = err.Error()
	case res.Success:
		rec.Success = true
		rec.Output = res.Data
	default:
		rec.Error = res.Error
	}

	o.recordToolCall(sessionID, rec)
	return rec
}

// recordToolCall appends a call record to memory and trace together.
func (o *Orchestrator) recordToolCall(sessionID string, rec domain.ToolCallRecord) {
	if err := o.memory.AppendToolCall(sessionID, rec); err != nil {
		o.log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to record tool call")
	}
	o.tracer.Record(sessionID, domain.TraceEvent{
		Type: domain.EventToolCall,
		Data: domain.ToolCallData{Handle: rec.Handle, Success: rec.Success, Error: rec.Error},
	})
}

// recordMessage appends a turn to memory and trace together.
func (o *Orchestrator) recordMessage(sessionID string, role domain.Role, text string) {
	if err := o.memory.AppendMessage(sessionID, domain.Message{Role: role, Text: text}); err != nil {
		o.log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to append message")
		return
	}
	o.tracer.Record(sessionID, domain.TraceEvent{
		Type: domain.EventMessage,
		Data: domain.MessageData{Role: role, Text: text},
	})
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}

// historyMessages converts session turns into generator messages.
func historyMessages(sess *domain.Session) []responder.Message {
	out := make([]responder.Message, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		role := responder.RoleUser
		if m.Role == domain.RoleAgent {
			role = responder.RoleAssistant
		}
		out = append(out, responder.Message{Role: role, Content: m.Text})
	}
	return out
}
