package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

// PaymentTransaction is the ledger row for a single gateway order.
type PaymentTransaction struct {
	OrderID          string                 `gorm:"column:order_id;primaryKey"`
	Amount           int64                  `gorm:"column:amount;not null"`
	Currency         enums.Currency         `gorm:"column:currency;not null;default:'INR'"`
	Status           enums.PaymentStatus    `gorm:"column:status;not null"`
	CustomerName     string                 `gorm:"column:customer_name;not null"`
	CustomerEmail    string                 `gorm:"column:customer_email;not null"`
	CustomerPhone    string                 `gorm:"column:customer_phone;not null"`
	RegistrationType enums.RegistrationType `gorm:"column:registration_type;not null"`
	RegistrationID   *string                `gorm:"column:registration_id"`
	CollectionName   string                 `gorm:"column:collection_name;not null;default:'registrations'"`
	PaymentSessionID string                 `gorm:"column:payment_session_id"`
	GatewayResponse  json.RawMessage        `gorm:"column:gateway_response;type:jsonb;serializer:json"`
	TransactionID    *string                `gorm:"column:transaction_id"`
	PaymentMethod    *string                `gorm:"column:payment_method"`
	CreatedAt        time.Time              `gorm:"column:created_at"`
	UpdatedAt        time.Time              `gorm:"column:updated_at"`
	LinkedAt         *time.Time             `gorm:"column:linked_at"`
	PaymentDate      *time.Time             `gorm:"column:payment_date"`
	LastChecked      *time.Time             `gorm:"column:last_checked"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// Linked reports whether the transaction points at a registration document.
func (t *PaymentTransaction) Linked() bool {
	return t != nil && t.RegistrationID != nil && *t.RegistrationID != "" && t.CollectionName != ""
}
