package payments

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

// CreateOrderInput is the client request for a new payment order.
type CreateOrderInput struct {
	Amount           decimal.NullDecimal
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	RegistrationType string
	RegistrationID   string
	CollectionName   string
	ReturnURL        string
}

type CreateOrderResult struct {
	Success          bool   `json:"success"`
	OrderID          string `json:"orderId"`
	PaymentSessionID string `json:"paymentSessionId"`
	OrderAmount      int64  `json:"orderAmount"`
}

type StatusInput struct {
	OrderID string
}

type StatusResult struct {
	Success        bool                `json:"success"`
	OrderID        string              `json:"orderId"`
	Status         enums.PaymentStatus `json:"status"`
	Amount         float64             `json:"amount"`
	PaymentDetails json.RawMessage     `json:"paymentDetails"`
}

type LinkInput struct {
	OrderID        string
	RegistrationID string
	CollectionName string
}

type LinkResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WebhookResult summarizes a processed gateway notification.
type WebhookResult struct {
	OrderID     string
	Status      enums.PaymentStatus
	Propagation *PropagationReport
}

// PropagationReport is the logged view of a registration update.
type PropagationReport struct {
	Outcome string
	Reason  string
}

// StatusUpdate is written by the webhook and poll paths. Nil pointers are not written.
type StatusUpdate struct {
	Status          enums.PaymentStatus
	TransactionID   *string
	PaymentMethod   *string
	GatewayResponse json.RawMessage
	UpdatedAt       time.Time
	PaymentDate     *time.Time
	LastChecked     *time.Time
}

// LinkUpdate binds a transaction to a registration document.
type LinkUpdate struct {
	RegistrationID string
	Collection     enums.RegistrationCollection
	LinkedAt       time.Time
}

// UnsettledQuery selects orders still waiting on the gateway.
type UnsettledQuery struct {
	CreatedAfter  time.Time
	CreatedBefore time.Time
	// Orders polled after this instant are skipped.
	CheckedBefore time.Time
	Limit         int
}
