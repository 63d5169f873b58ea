package enums

import "strings"

// PaymentStatus is the transaction status string. The gateway may report values
// beyond the known constants; those are stored verbatim.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "PENDING"
	PaymentStatusSuccess     PaymentStatus = "SUCCESS"
	PaymentStatusPaid        PaymentStatus = "PAID"
	PaymentStatusFailed      PaymentStatus = "FAILED"
	PaymentStatusUserDropped PaymentStatus = "USER_DROPPED"
	PaymentStatusActive      PaymentStatus = "ACTIVE"
	PaymentStatusExpired     PaymentStatus = "EXPIRED"
)

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsWebhookSuccess reports whether a webhook payment_status means the payment
// settled. Webhooks report payment-level statuses, so only SUCCESS counts.
func (p PaymentStatus) IsWebhookSuccess() bool {
	return p == PaymentStatusSuccess
}

// IsPolledSuccess reports whether an order_status from the status endpoint means
// the order is paid.
func (p PaymentStatus) IsPolledSuccess() bool {
	return p == PaymentStatusPaid || p == PaymentStatusSuccess
}

// IsUnsettled reports whether the gateway is still waiting on the customer.
func (p PaymentStatus) IsUnsettled() bool {
	return p == PaymentStatusPending || p == PaymentStatusActive
}

// NormalizePaymentStatus trims gateway input without altering its case.
func NormalizePaymentStatus(value string) PaymentStatus {
	return PaymentStatus(strings.TrimSpace(value))
}

// RegistrationPaidStatus is written to registration documents once paid.
const RegistrationPaidStatus = "Paid"
