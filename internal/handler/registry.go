// Package handler declares the closed set of specialized conversational
// handlers and their capabilities. The set is resolved once at startup;
// routing never targets a handler that is not registered here.
package handler

import (
	"fmt"

	"github.com/lookfor-ai/maestro/internal/domain"
)

// Registry holds the declared handlers and the intent→handler table.
type Registry struct {
	handlers map[domain.HandlerID]domain.Handler
	order    []domain.HandlerID
	byIntent map[domain.Intent]domain.HandlerID
}

// NewRegistry builds a registry from handler declarations. Two
// handlers declaring the same intent is a configuration error.
func NewRegistry(handlers ...domain.Handler) (*Registry, error) {
	r := &Registry{
		handlers: make(map[domain.HandlerID]domain.Handler, len(handlers)),
		byIntent: make(map[domain.Intent]domain.HandlerID),
	}
	for _, h := range handlers {
		if _, dup := r.handlers[h.ID]; dup {
			return nil, fmt.Errorf("duplicate handler %q", h.ID)
		}
		r.handlers[h.ID] = h
		r.order = append(r.order, h.ID)
		for _, it := range h.Intents {
			if owner, taken := r.byIntent[it]; taken {
				return nil, fmt.Errorf("intent %q declared by both %q and %q", it, owner, h.ID)
			}
			r.byIntent[it] = h.ID
		}
	}
	return r, nil
}

// Get returns a handler by id.
func (r *Registry) Get(id domain.HandlerID) (domain.Handler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}

// ForIntent returns the default handler for an intent, falling back to
// the general handler for intents no handler declares.
func (r *Registry) ForIntent(it domain.Intent) domain.HandlerID {
	if id, ok := r.byIntent[it]; ok {
		return id
	}
	return domain.HandlerGeneral
}

// List returns handlers in declaration order.
func (r *Registry) List() []domain.Handler {
	out := make([]domain.Handler, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.handlers[id])
	}
	return out
}

// Defaults returns the standard support-desk handler set.
func Defaults() *Registry {
	r, err := NewRegistry(
		domain.Handler{
			ID:   domain.HandlerOrders,
			Name: "Order Management",
			Intents: []domain.Intent{
				domain.IntentOrderStatus,
				domain.IntentCancelOrder,
				domain.IntentShippingAddress,
			},
			Related:               []domain.Intent{domain.IntentReturnRequest},
			Tools:                 []string{"get_order", "cancel_order", "update_shipping_address"},
			EscalateOnToolFailure: true,
		},
		domain.Handler{
			ID:   domain.HandlerReturns,
			Name: "Returns & Refunds",
			Intents: []domain.Intent{
				domain.IntentReturnRequest,
				domain.IntentRefundRequest,
			},
			Related:               []domain.Intent{domain.IntentOrderStatus},
			Tools:                 []string{"get_order", "create_return", "issue_refund"},
			EscalateOnToolFailure: true,
		},
		domain.Handler{
			ID:   domain.HandlerSubscriptions,
			Name: "Subscriptions",
			Intents: []domain.Intent{
				domain.IntentSubscriptionCancel,
				domain.IntentSubscriptionPause,
				domain.IntentSubscriptionInquiry,
			},
			Related: []domain.Intent{domain.IntentRefundRequest},
			Tools:   []string{"get_subscription", "pause_subscription", "cancel_subscription"},
		},
		domain.Handler{
			ID:   domain.HandlerGeneral,
			Name: "General Support",
			Intents: []domain.Intent{
				domain.IntentProductInquiry,
				domain.IntentDiscountRequest,
				domain.IntentGeneralInquiry,
			},
			Tools: []string{"search_products"},
		},
	)
	if err != nil {
		// The default table is static; a conflict here is a programming error.
		panic(err)
	}
	return r
}
