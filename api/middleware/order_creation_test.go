package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func keyedOrderRequest(key, email string) *http.Request {
	req := orderRequest("10.0.0.1", email)
	req.Header.Set("Idempotency-Key", key)
	return req
}

func TestOrderCreation_ReplayDoesNotSpendQuota(t *testing.T) {
	limiter := newFakeRateStore()
	store := newFakeStore()
	next := &countingHandler{}
	policy := NewOrderRateLimitPolicy("orders", time.Minute, 0, 1)
	handler := OrderCreation(policy, limiter, store, time.Hour, nil)(next)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedOrderRequest("retry-1", "asha@example.com"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, keyedOrderRequest("retry-1", "asha@example.com"))
		if rec.Code != http.StatusOK || rec.Body.String() != first.Body.String() {
			t.Fatalf("retry %d: expected replayed response, got %d %s", i, rec.Code, rec.Body.String())
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected handler called once, got %d", next.calls)
	}
	for scope, count := range limiter.counts {
		if count != 1 {
			t.Fatalf("expected one counted request for %s, got %d", scope, count)
		}
	}
}

func TestOrderCreation_RateLimitedResponseNotStored(t *testing.T) {
	limiter := newFakeRateStore()
	store := newFakeStore()
	next := &countingHandler{}
	policy := NewOrderRateLimitPolicy("orders", time.Minute, 0, 1)
	handler := OrderCreation(policy, limiter, store, time.Hour, nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), keyedOrderRequest("first", "asha@example.com"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedOrderRequest("second", "asha@example.com"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if _, ok := store.data[store.IdempotencyKey("POST|/createPaymentOrder", "second")]; ok {
		t.Fatal("rate-limited response must not be stored")
	}
	if _, ok := store.data[store.IdempotencyKey("POST|/createPaymentOrder", "first")]; !ok {
		t.Fatal("expected the accepted response to be stored")
	}
}
