package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Registration mirrors the payment columns shared by every registration
// collection table. The form subsystem owns the rows; FormData is opaque here.
type Registration struct {
	ID               string           `gorm:"column:id;primaryKey"`
	FormData         json.RawMessage  `gorm:"column:form_data;type:jsonb;serializer:json"`
	PaymentStatus    *string          `gorm:"column:payment_status"`
	PaymentID        *string          `gorm:"column:payment_id"`
	TransactionID    *string          `gorm:"column:transaction_id"`
	PaymentAmount    *decimal.Decimal `gorm:"column:payment_amount;type:numeric(12,2)"`
	PaymentMethod    *string          `gorm:"column:payment_method"`
	PaymentDate      *time.Time       `gorm:"column:payment_date"`
	WebhookConfirmed bool             `gorm:"column:webhook_confirmed;not null;default:false"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
