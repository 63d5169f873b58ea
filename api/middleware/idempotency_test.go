package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	status := h.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"data":{"call":%d}}`, h.calls)
}

func idempotentRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/createPaymentOrder", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	next := &countingHandler{}
	handler := Idempotency(store, time.Hour, nil)(next)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idempotentRequest("key-1", `{"amount":1531}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idempotentRequest("key-1", `{"amount":1531}`))

	if next.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", next.calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body mismatch: %q vs %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay header missing")
	}
	if ttl := store.ttls["fake:POST|/createPaymentOrder:key-1"]; ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newFakeStore()
	next := &countingHandler{}
	handler := Idempotency(store, time.Hour, nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("key-1", `{"amount":1531}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, idempotentRequest("key-1", `{"amount":1}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if next.calls != 1 {
		t.Fatalf("conflicting request must not reach the handler")
	}
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newFakeStore()
	next := &countingHandler{}
	handler := Idempotency(store, time.Hour, nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("", `{}`))

	if next.calls != 2 || len(store.data) != 0 {
		t.Fatalf("requests without a key must not be cached (calls=%d, stored=%d)", next.calls, len(store.data))
	}
}

func TestIdempotencySkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	next := &countingHandler{status: http.StatusInternalServerError}
	handler := Idempotency(store, time.Hour, nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("key-1", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), idempotentRequest("key-1", `{}`))

	if next.calls != 2 {
		t.Fatalf("server errors must not be replayed, calls=%d", next.calls)
	}
}
