package payments

import (
	"context"

	"github.com/angelmondragon/regpay-backend/internal/registrations"
	"github.com/angelmondragon/regpay-backend/pkg/cashfree"
	"github.com/angelmondragon/regpay-backend/pkg/db/models"
)

// Repository persists transaction records keyed by order id.
type Repository interface {
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	// FindByOrderID returns nil, nil when the order does not exist.
	FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	ApplyStatus(ctx context.Context, orderID string, update StatusUpdate) (found bool, err error)
	Link(ctx context.Context, orderID string, link LinkUpdate) (found bool, err error)
	// ListUnsettled returns PENDING or ACTIVE order ids, oldest first.
	ListUnsettled(ctx context.Context, q UnsettledQuery) ([]string, error)
}

// Gateway is the subset of the payment gateway the service calls.
type Gateway interface {
	CreateOrder(ctx context.Context, req cashfree.CreateOrderRequest) (*cashfree.Order, error)
	GetOrder(ctx context.Context, orderID string) (*cashfree.Order, error)
}

// Propagator pushes paid status onto registration documents.
type Propagator interface {
	Propagate(ctx context.Context, target registrations.Target, payment registrations.Payment) registrations.Result
}

// EventPublisher emits payment events for downstream consumers.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}

// URLBuilder resolves the callback URLs handed to the gateway.
type URLBuilder interface {
	NotifyURL() string
	ReturnURL(requested string) string
}
