package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/angelmondragon/regpay-backend/pkg/config"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
)

var errURIRequired = errors.New("mongo uri is required")

// Client wraps the shared document-store connection.
type Client struct {
	raw              *mongo.Client
	db               *mongo.Database
	operationTimeout time.Duration
}

// New connects to MongoDB and verifies the primary is reachable.
func New(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errURIRequired
	}
	dbName := strings.TrimSpace(cfg.Database)
	if dbName == "" {
		dbName = "regpay"
	}

	opts := options.Client().ApplyURI(uri)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	if cfg.OperationTimeout > 0 {
		opts.SetTimeout(cfg.OperationTimeout)
	}

	raw, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := raw.Ping(ctx, readpref.Primary()); err != nil {
		_ = raw.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "database", dbName), "mongo connection established")
	}

	return &Client{
		raw:              raw,
		db:               raw.Database(dbName),
		operationTimeout: cfg.OperationTimeout,
	}, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database {
	if c == nil {
		return nil
	}
	return c.db
}

// Collection returns a handle for the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Collection(name)
}

// Ping verifies the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("mongo client not initialized")
	}
	return c.raw.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.raw.Disconnect(ctx)
}
