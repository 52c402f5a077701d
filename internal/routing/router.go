// Package routing picks the target handler for a classified message,
// honoring dynamic rule overrides and session continuity.
package routing

import (
	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/handler"
	"github.com/lookfor-ai/maestro/internal/logging"
)

// Decision is the routing outcome for one message. When Blocked is
// set, Target is empty and no handler is invoked.
type Decision struct {
	Target      domain.HandlerID `json:"targetHandler,omitempty"`
	Intent      domain.Intent    `json:"intent"`
	Blocked     bool             `json:"blocked"`
	BlockReason string           `json:"blockReason,omitempty"`
}

// Router combines the intent table, dynamic-rule overrides, and
// session continuity into a single handler decision. It is pure: the
// orchestrator records the ROUTING trace event.
type Router struct {
	handlers *handler.Registry
	log      *logging.Logger
}

// NewRouter creates a router over the declared handler set.
func NewRouter(handlers *handler.Registry, log *logging.Logger) *Router {
	return &Router{handlers: handlers, log: log.Sub("routing")}
}

// Route decides the target handler. Order: rule BLOCK, rule REDIRECT,
// intent table, session continuity. Continuity keeps the conversation
// with its current handler when that handler can service the new
// intent, avoiding handler churn on closely related follow-ups.
func (r *Router) Route(it domain.Intent, rule *domain.DynamicRule, current domain.HandlerID) Decision {
	if rule != nil {
		switch rule.Action.Type {
		case domain.ActionBlock:
			r.log.Info().Str("ruleId", rule.ID).Str("intent", string(it)).Msg("message blocked by rule")
			return Decision{Intent: it, Blocked: true, BlockReason: rule.Action.Reason}
		case domain.ActionRedirect:
			if _, ok := r.handlers.Get(rule.Action.Target); ok {
				r.log.Info().Str("ruleId", rule.ID).Str("target", string(rule.Action.Target)).Msg("redirected by rule")
				return Decision{Target: rule.Action.Target, Intent: it}
			}
			r.log.Warn().Str("ruleId", rule.ID).Str("target", string(rule.Action.Target)).Msg("redirect target not registered, using intent table")
		}
	}

	target := r.handlers.ForIntent(it)
	if current != "" && current != target {
		if h, ok := r.handlers.Get(current); ok && h.CanService(it) {
			r.log.Debug().Str("current", string(current)).Str("default", string(target)).Str("intent", string(it)).Msg("session continuity keeps current handler")
			target = current
		}
	}
	return Decision{Target: target, Intent: it}
}
