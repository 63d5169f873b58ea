package registrations

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore writes registration payments to the per-collection tables.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

func (s *gormStore) ApplyPayment(ctx context.Context, target Target, payment Payment) (bool, error) {
	if err := target.validate(); err != nil {
		return false, err
	}

	updates := map[string]any{
		"payment_status": enums.RegistrationPaidStatus,
		"payment_id":     payment.OrderID,
		"payment_amount": payment.Amount,
		"payment_date":   payment.PaidAt.UTC(),
		"updated_at":     s.now().UTC(),
	}
	if payment.TransactionID != nil {
		updates["transaction_id"] = *payment.TransactionID
	}
	if payment.Method != nil {
		updates["payment_method"] = *payment.Method
	}
	if payment.WebhookConfirmed {
		updates["webhook_confirmed"] = true
	}

	// collection is allow-listed by validate, so it is safe as a table name
	res := s.db.WithContext(ctx).
		Table(string(target.Collection)).
		Where("id = ?", target.RegistrationID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
