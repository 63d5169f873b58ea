package enums

// PaymentEventType names events published for downstream consumers.
type PaymentEventType string

const (
	EventPaymentStatusChanged PaymentEventType = "payment.status_changed"
)

// PaymentEventSource records which path observed a status.
type PaymentEventSource string

const (
	SourceWebhook PaymentEventSource = "webhook"
	SourcePoll    PaymentEventSource = "poll"
)
