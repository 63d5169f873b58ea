package webhooks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/regpay-backend/internal/payments"
	cashfreewebhook "github.com/angelmondragon/regpay-backend/internal/webhooks/cashfree"
	"github.com/angelmondragon/regpay-backend/pkg/cashfree"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
)

const testSecret = "test-secret"

type fakeCashfreeService struct {
	calls  int
	err    error
	events []*cashfree.WebhookEvent
}

func (f *fakeCashfreeService) HandleWebhook(ctx context.Context, event *cashfree.WebhookEvent) (*payments.WebhookResult, error) {
	f.calls++
	f.events = append(f.events, event)
	if f.err != nil {
		return nil, f.err
	}
	return &payments.WebhookResult{OrderID: event.OrderID, Status: event.PaymentStatus}, nil
}

type staticSecret string

func (s staticSecret) SecretKey() string { return string(s) }

type countingMetrics struct {
	outcomes map[string]int
}

func (m *countingMetrics) IncWebhook(outcome string) {
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

type inMemoryStore struct {
	keys map[string]struct{}
	err  error
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{keys: map[string]struct{}{}}
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

func (s *inMemoryStore) WebhookKey(provider, id string) string {
	return provider + ":" + id
}

type webhookFixture struct {
	handler http.HandlerFunc
	service *fakeCashfreeService
	store   *inMemoryStore
	metrics *countingMetrics
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	store := newInMemoryStore()
	guard, err := cashfreewebhook.NewReplayGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	svc := &fakeCashfreeService{}
	metrics := &countingMetrics{}
	return &webhookFixture{
		handler: CashfreeWebhook(svc, staticSecret(testSecret), guard, metrics, nil),
		service: svc,
		store:   store,
		metrics: metrics,
	}
}

func signedRequest(body, timestamp string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/verifyPaymentWebhook", bytes.NewReader([]byte(body)))
	req.Header.Set(cashfree.HeaderTimestamp, timestamp)
	req.Header.Set(cashfree.HeaderSignature, cashfree.ComputeSignature(testSecret, timestamp, []byte(body)))
	return req
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const successBody = `{"data":{"order":{"order_id":"ORDER_1"},"payment":{"payment_status":"SUCCESS","cf_payment_id":123}}}`

func TestCashfreeWebhook_SuccessAndReplay(t *testing.T) {
	f := newWebhookFixture(t)

	rec := serve(f.handler, signedRequest(successBody, "1700000000"))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d (%s)", rec.Code, rec.Body.String())
	}
	if f.service.calls != 1 {
		t.Fatalf("expected one service call, got %d", f.service.calls)
	}
	if got := f.service.events[0].OrderID; got != "ORDER_1" {
		t.Fatalf("expected ORDER_1, got %s", got)
	}

	rec = serve(f.handler, signedRequest(successBody, "1700000000"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if f.service.calls != 1 {
		t.Fatalf("replayed delivery must not be reprocessed, calls=%d", f.service.calls)
	}
	if f.metrics.outcomes["duplicate"] != 1 || f.metrics.outcomes["processed"] != 1 {
		t.Fatalf("unexpected outcomes %v", f.metrics.outcomes)
	}

	rec = serve(f.handler, signedRequest(successBody, "1700000300"))
	if rec.Code != http.StatusOK || f.service.calls != 2 {
		t.Fatalf("a gateway retry with a new timestamp must be processed, code=%d calls=%d", rec.Code, f.service.calls)
	}
}

func TestCashfreeWebhook_RejectsBadSignatures(t *testing.T) {
	cases := map[string]func(*http.Request){
		"missing signature": func(r *http.Request) { r.Header.Del(cashfree.HeaderSignature) },
		"missing timestamp": func(r *http.Request) { r.Header.Del(cashfree.HeaderTimestamp) },
		"wrong signature": func(r *http.Request) {
			r.Header.Set(cashfree.HeaderSignature, cashfree.ComputeSignature("other", "1700000000", []byte(successBody)))
		},
		"not base64":         func(r *http.Request) { r.Header.Set(cashfree.HeaderSignature, "%%%") },
		"tampered timestamp": func(r *http.Request) { r.Header.Set(cashfree.HeaderTimestamp, "1700000001") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newWebhookFixture(t)
			req := signedRequest(successBody, "1700000000")
			mutate(req)

			rec := serve(f.handler, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if f.service.calls != 0 {
				t.Fatalf("service must not run on invalid signature")
			}
			if len(f.store.keys) != 0 {
				t.Fatalf("invalid deliveries must not be marked")
			}
		})
	}
}

func TestCashfreeWebhook_MethodNotAllowed(t *testing.T) {
	f := newWebhookFixture(t)
	rec := serve(f.handler, httptest.NewRequest(http.MethodGet, "/verifyPaymentWebhook", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCashfreeWebhook_MissingOrderID(t *testing.T) {
	f := newWebhookFixture(t)
	rec := serve(f.handler, signedRequest(`{"data":{"payment":{"payment_status":"SUCCESS"}}}`, "1700000000"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if f.service.calls != 0 {
		t.Fatalf("service must not run without an order id")
	}
}

func TestCashfreeWebhook_FailureReleasesReplayKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "unknown order", err: pkgerrors.New(pkgerrors.CodeNotFound, "Transaction not found"), want: http.StatusNotFound},
		{name: "store failure", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newWebhookFixture(t)
			f.service.err = tc.err

			rec := serve(f.handler, signedRequest(successBody, "1700000000"))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if len(f.store.keys) != 0 {
				t.Fatalf("failed delivery must release its replay key")
			}

			f.service.err = nil
			rec = serve(f.handler, signedRequest(successBody, "1700000000"))
			if rec.Code != http.StatusOK || f.service.calls != 2 {
				t.Fatalf("retry should be processed, code=%d calls=%d", rec.Code, f.service.calls)
			}
		})
	}
}

func TestCashfreeWebhook_GuardErrorIs500(t *testing.T) {
	f := newWebhookFixture(t)
	f.store.err = errors.New("redis unavailable")

	rec := serve(f.handler, signedRequest(successBody, "1700000000"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if f.service.calls != 0 {
		t.Fatalf("service must not run when the replay check fails")
	}
}

func TestCashfreeWebhook_MissingHeadersBeforeOversizedBody(t *testing.T) {
	f := newWebhookFixture(t)
	oversized := bytes.Repeat([]byte("a"), maxWebhookBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/verifyPaymentWebhook", bytes.NewReader(oversized))

	rec := serve(f.handler, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned delivery, got %d (%s)", rec.Code, rec.Body.String())
	}
	if f.metrics.outcomes["invalid_signature"] != 1 || f.metrics.outcomes["invalid_payload"] != 0 {
		t.Fatalf("unexpected outcomes %v", f.metrics.outcomes)
	}
	if f.service.calls != 0 {
		t.Fatalf("unsigned delivery must not reach the service, calls=%d", f.service.calls)
	}
}

func TestCashfreeWebhook_SignedOversizedBodyRejected(t *testing.T) {
	f := newWebhookFixture(t)
	oversized := bytes.Repeat([]byte("a"), maxWebhookBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/verifyPaymentWebhook", bytes.NewReader(oversized))
	req.Header.Set(cashfree.HeaderTimestamp, "1700000000")
	req.Header.Set(cashfree.HeaderSignature, cashfree.ComputeSignature(testSecret, "1700000000", oversized))

	rec := serve(f.handler, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized signed body, got %d", rec.Code)
	}
	if f.metrics.outcomes["invalid_payload"] != 1 {
		t.Fatalf("unexpected outcomes %v", f.metrics.outcomes)
	}
}
