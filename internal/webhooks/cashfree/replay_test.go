package cashfreewebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	keys   map[string]time.Duration
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryStore) WebhookKey(provider, id string) string {
	return "regpay:webhook:" + provider + ":" + id
}

func TestNewReplayGuardValidation(t *testing.T) {
	_, err := NewReplayGuard(nil, time.Hour)
	require.Error(t, err)
	_, err = NewReplayGuard(newMemoryStore(), 0)
	require.Error(t, err)
}

func TestReplayGuardMarksOnce(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewReplayGuard(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "ORDER_1:SUCCESS:1700000000")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 24*time.Hour, store.keys["regpay:webhook:cashfree:ORDER_1:SUCCESS:1700000000"])

	seen, err = guard.CheckAndMark(ctx, "ORDER_1:SUCCESS:1700000000")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = guard.CheckAndMark(ctx, "ORDER_1:SUCCESS:1700000060")
	require.NoError(t, err)
	assert.False(t, seen, "a new delivery timestamp is a new delivery")
}

func TestReplayGuardDeleteAllowsRetry(t *testing.T) {
	guard, err := NewReplayGuard(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = guard.CheckAndMark(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, guard.Delete(ctx, "k"))

	seen, err := guard.CheckAndMark(ctx, "k")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestReplayGuardErrors(t *testing.T) {
	store := newMemoryStore()
	store.setErr = errors.New("redis down")
	guard, err := NewReplayGuard(store, time.Hour)
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "k")
	require.ErrorContains(t, err, "redis down")

	_, err = guard.CheckAndMark(context.Background(), "")
	require.Error(t, err)
	require.Error(t, guard.Delete(context.Background(), ""))
}
