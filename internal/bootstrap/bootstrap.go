// Package bootstrap wires the stores, gateway and payment service shared by the
// api and cron-worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/regpay-backend/internal/payments"
	"github.com/angelmondragon/regpay-backend/internal/registrations"
	"github.com/angelmondragon/regpay-backend/pkg/cashfree"
	"github.com/angelmondragon/regpay-backend/pkg/config"
	"github.com/angelmondragon/regpay-backend/pkg/db"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
	"github.com/angelmondragon/regpay-backend/pkg/metrics"
	"github.com/angelmondragon/regpay-backend/pkg/migrate"
	pkgmongo "github.com/angelmondragon/regpay-backend/pkg/mongo"
	"github.com/angelmondragon/regpay-backend/pkg/pubsub"
)

// Pinger is the readiness surface of every backing client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage groups the repositories backed by the configured store driver.
type Storage struct {
	Transactions  payments.Repository
	Registrations registrations.Store
	// Name labels the store in readiness output.
	Name   string
	Pinger Pinger
	Close  func() error
}

func OpenStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Storage, error) {
	switch cfg.Store.Kind() {
	case config.StoreDriverMongo:
		client, err := pkgmongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap mongo: %w", err)
		}
		return &Storage{
			Transactions:  payments.NewMongoRepository(client.Database()),
			Registrations: registrations.NewMongoStore(client.Database()),
			Name:          "mongo",
			Pinger:        client,
			Close:         client.Close,
		}, nil
	default:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), client.Close())
		}
		return &Storage{
			Transactions:  payments.NewRepository(client.DB()),
			Registrations: registrations.NewGormStore(client.DB()),
			Name:          "db",
			Pinger:        client,
			Close:         client.Close,
		}, nil
	}
}

// OpenEvents connects the status event publisher when a topic is configured.
// Both return values are nil when events are disabled.
func OpenEvents(ctx context.Context, cfg *config.Config, logg *logger.Logger) (payments.EventPublisher, *pubsub.Client, error) {
	if !cfg.PubSub.Enabled() {
		logg.Warn(ctx, "payment events disabled; no pubsub topic configured")
		return nil, nil, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	publisher, err := payments.NewPubSubPublisher(client.PaymentsPublisher())
	if err != nil {
		return nil, nil, multierr.Append(err, client.Close())
	}
	return publisher, client, nil
}

// PaymentsParams are the pieces NewPayments assembles into a service.
type PaymentsParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Storage *Storage
	Events  payments.EventPublisher
	Metrics *metrics.PaymentMetrics
}

// NewPayments builds the gateway client and the payment service on top of it.
func NewPayments(ctx context.Context, p PaymentsParams) (*payments.Service, *cashfree.Client, error) {
	gateway, err := cashfree.NewClient(ctx, p.Config.Cashfree, p.Logger, cashfree.WithLatencyObserver(p.Metrics))
	if err != nil {
		return nil, nil, err
	}
	propagator, err := registrations.NewPropagator(p.Storage.Registrations)
	if err != nil {
		return nil, nil, err
	}
	service, err := payments.NewService(payments.ServiceParams{
		Repository: p.Storage.Transactions,
		Gateway:    gateway,
		Propagator: propagator,
		URLs:       p.Config.App,
		Logger:     p.Logger,
		Events:     p.Events,
		Metrics:    p.Metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	return service, gateway, nil
}

// Closers releases resources in reverse order of acquisition.
type Closers []func() error

func (c *Closers) Add(fn func() error) {
	if fn == nil {
		return
	}
	*c = append(*c, fn)
}

func (c Closers) CloseAll() error {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		err = multierr.Append(err, c[i]())
	}
	return err
}
