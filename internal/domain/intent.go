package domain

// Intent is a fixed category describing what a customer message asks for.
type Intent string

const (
	IntentEscalationRequest   Intent = "escalation-request"
	IntentSubscriptionCancel  Intent = "subscription-cancel"
	IntentSubscriptionPause   Intent = "subscription-pause"
	IntentRefundRequest       Intent = "refund-request"
	IntentReturnRequest       Intent = "return-request"
	IntentCancelOrder         Intent = "cancel-order"
	IntentSubscriptionInquiry Intent = "subscription-inquiry"
	IntentShippingAddress     Intent = "shipping-address"
	IntentOrderStatus         Intent = "order-status"
	IntentProductInquiry      Intent = "product-inquiry"
	IntentDiscountRequest     Intent = "discount-request"
	IntentGeneralInquiry      Intent = "general-inquiry"
)
