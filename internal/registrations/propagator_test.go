package registrations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

type stubStore struct {
	matched bool
	err     error
	calls   int
}

func (s *stubStore) ApplyPayment(ctx context.Context, target Target, payment Payment) (bool, error) {
	s.calls++
	return s.matched, s.err
}

func testPayment() Payment {
	return Payment{
		OrderID: "ORDER_1",
		Amount:  decimal.NewFromInt(1531),
		PaidAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPropagateOutcomes(t *testing.T) {
	target := Target{Collection: enums.CollectionPrintCertificates, RegistrationID: "reg-1"}

	tests := []struct {
		name  string
		store *stubStore
		want  Outcome
	}{
		{name: "applied", store: &stubStore{matched: true}, want: OutcomeApplied},
		{name: "missing document", store: &stubStore{matched: false}, want: OutcomeNotFound},
		{name: "store failure", store: &stubStore{err: errors.New("connection reset")}, want: OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPropagator(tt.store)
			if err != nil {
				t.Fatalf("new propagator: %v", err)
			}
			res := p.Propagate(context.Background(), target, testPayment())
			if res.Outcome != tt.want {
				t.Fatalf("expected %s got %s (%s)", tt.want, res.Outcome, res.Reason)
			}
			if tt.want == OutcomeFailed && (res.Err == nil || res.Reason != "connection reset") {
				t.Fatalf("failed result should carry the cause, got %+v", res)
			}
		})
	}
}

func TestPropagateRejectsInvalidTargetWithoutStoreCall(t *testing.T) {
	store := &stubStore{matched: true}
	p, _ := NewPropagator(store)

	for _, target := range []Target{
		{Collection: "users", RegistrationID: "reg-1"},
		{Collection: enums.CollectionRegistrations, RegistrationID: "  "},
	} {
		res := p.Propagate(context.Background(), target, testPayment())
		if res.Outcome != OutcomeFailed {
			t.Fatalf("expected failed outcome for %+v, got %s", target, res.Outcome)
		}
	}
	if store.calls != 0 {
		t.Fatalf("store should not be called for invalid targets")
	}
}

func TestNewPropagatorRequiresStore(t *testing.T) {
	if _, err := NewPropagator(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
