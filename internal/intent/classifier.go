// Package intent classifies customer messages into a fixed intent set
// using priority-weighted keyword matching.
package intent

import (
	"strings"

	"github.com/lookfor-ai/maestro/internal/domain"
)

// entry is one row of the intent table.
type entry struct {
	Intent   domain.Intent
	Priority int
	Keywords []string
}

// table is the fixed intent table, declared high priority first.
// Declaration order breaks priority ties: the first listed entry wins,
// so classification is deterministic even when intents share keywords.
var table = []entry{
	{domain.IntentEscalationRequest, 15, []string{"human", "manager", "supervisor", "real person", "speak to", "talk to", "transfer to"}},
	{domain.IntentSubscriptionCancel, 10, []string{"cancel subscription", "cancel my subscription", "stop subscription", "end subscription", "unsubscribe"}},
	{domain.IntentSubscriptionPause, 10, []string{"pause subscription", "pause my subscription", "skip next", "skip a month", "hold my subscription"}},
	{domain.IntentRefundRequest, 8, []string{"refund", "money back", "charge back", "reimburse"}},
	{domain.IntentReturnRequest, 7, []string{"return", "send back", "exchange"}},
	{domain.IntentCancelOrder, 6, []string{"cancel order", "cancel my order", "cancel the order"}},
	{domain.IntentSubscriptionInquiry, 5, []string{"subscription", "next delivery", "recurring"}},
	{domain.IntentShippingAddress, 4, []string{"address", "shipping address", "delivery address", "change address"}},
	{domain.IntentOrderStatus, 3, []string{"where is my order", "order status", "track", "tracking", "shipped", "delivery", "when will", "my order"}},
	{domain.IntentProductInquiry, 2, []string{"product", "item", "size", "color", "in stock", "available"}},
	{domain.IntentDiscountRequest, 2, []string{"discount", "coupon", "promo", "voucher", "sale"}},
	{domain.IntentGeneralInquiry, 1, []string{"help", "question", "hello", "hi"}},
}

// Fallback is returned when no keyword matches.
const Fallback = domain.IntentGeneralInquiry

// Classify maps a message to a single intent. Every intent whose
// keyword occurs as a case-insensitive substring is a candidate; the
// highest-priority candidate wins, ties going to the earlier table row.
func Classify(text string) domain.Intent {
	lower := strings.ToLower(text)

	best := Fallback
	bestPriority := 0
	for _, e := range table {
		if e.Priority <= bestPriority {
			continue
		}
		for _, kw := range e.Keywords {
			if strings.Contains(lower, kw) {
				best = e.Intent
				bestPriority = e.Priority
				break
			}
		}
	}
	return best
}

// Priority returns the table priority for an intent, 0 if unknown.
func Priority(it domain.Intent) int {
	for _, e := range table {
		if e.Intent == it {
			return e.Priority
		}
	}
	return 0
}
