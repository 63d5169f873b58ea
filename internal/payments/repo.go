package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/regpay-backend/pkg/db"
	"github.com/angelmondragon/regpay-backend/pkg/db/models"
	"github.com/angelmondragon/regpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
)

func unsettledStatuses() []enums.PaymentStatus {
	return []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusActive}
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transaction repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if db.IsUniqueViolation(err, "") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order id already exists")
		}
		return err
	}
	return nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ApplyStatus(ctx context.Context, orderID string, update StatusUpdate) (bool, error) {
	updates := map[string]any{
		"status":     update.Status,
		"updated_at": update.UpdatedAt,
	}
	if update.TransactionID != nil {
		updates["transaction_id"] = *update.TransactionID
	}
	if update.PaymentMethod != nil {
		updates["payment_method"] = *update.PaymentMethod
	}
	if len(update.GatewayResponse) > 0 {
		updates["gateway_response"] = string(update.GatewayResponse)
	}
	if update.PaymentDate != nil {
		updates["payment_date"] = *update.PaymentDate
	}
	if update.LastChecked != nil {
		updates["last_checked"] = *update.LastChecked
	}
	return r.update(ctx, orderID, updates)
}

func (r *repository) Link(ctx context.Context, orderID string, link LinkUpdate) (bool, error) {
	return r.update(ctx, orderID, map[string]any{
		"registration_id": link.RegistrationID,
		"collection_name": string(link.Collection),
		"linked_at":       link.LinkedAt,
		"updated_at":      link.LinkedAt,
	})
}

func (r *repository) ListUnsettled(ctx context.Context, q UnsettledQuery) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("status IN ?", unsettledStatuses()).
		Where("created_at >= ? AND created_at < ?", q.CreatedAfter, q.CreatedBefore).
		Where("last_checked IS NULL OR last_checked < ?", q.CheckedBefore).
		Order("created_at ASC").
		Limit(q.Limit).
		Pluck("order_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) update(ctx context.Context, orderID string, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
