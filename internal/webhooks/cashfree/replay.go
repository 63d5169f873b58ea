package cashfreewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const provider = "cashfree"

// ReplayStore is the key-value surface the guard needs.
type ReplayStore interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Del(context.Context, ...string) error
	WebhookKey(provider, id string) string
}

// ReplayGuard marks deliveries as seen so retries of the same notification are
// acknowledged without being applied twice.
type ReplayGuard struct {
	store ReplayStore
	ttl   time.Duration
}

func NewReplayGuard(store ReplayStore, ttl time.Duration) (*ReplayGuard, error) {
	if store == nil {
		return nil, errors.New("replay store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &ReplayGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the delivery was already seen, marking it if not.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, deliveryKey string) (bool, error) {
	if deliveryKey == "" {
		return false, errors.New("delivery key is required")
	}
	set, err := g.store.SetNX(ctx, g.store.WebhookKey(provider, deliveryKey), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set replay key: %w", err)
	}
	return !set, nil
}

// Delete releases the marker so a failed delivery can be retried.
func (g *ReplayGuard) Delete(ctx context.Context, deliveryKey string) error {
	if deliveryKey == "" {
		return errors.New("delivery key is required")
	}
	return g.store.Del(ctx, g.store.WebhookKey(provider, deliveryKey))
}
