package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

// Outcome classifies a registration payment update.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Target addresses one registration document.
type Target struct {
	Collection     enums.RegistrationCollection
	RegistrationID string
}

// Payment carries the fields written onto a paid registration. Nil pointers are
// left untouched on the document.
type Payment struct {
	OrderID          string
	TransactionID    *string
	Amount           decimal.Decimal
	Method           *string
	PaidAt           time.Time
	WebhookConfirmed bool
}

// Result reports what happened to the registration. Callers log it and move on;
// it never turns into an error for the primary operation.
type Result struct {
	Outcome Outcome
	Reason  string
	Err     error
}

// Store writes payment fields to a registration document. matched is false when
// no document exists for the target.
type Store interface {
	ApplyPayment(ctx context.Context, target Target, payment Payment) (matched bool, err error)
}

// Propagator applies payments to registration documents best-effort.
type Propagator struct {
	store Store
}

// NewPropagator builds a propagator over the given store.
func NewPropagator(store Store) (*Propagator, error) {
	if store == nil {
		return nil, errors.New("registration store required")
	}
	return &Propagator{store: store}, nil
}

// Propagate writes the payment to the target registration and classifies the result.
func (p *Propagator) Propagate(ctx context.Context, target Target, payment Payment) Result {
	if err := target.validate(); err != nil {
		return Result{Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
	}
	matched, err := p.store.ApplyPayment(ctx, target, payment)
	switch {
	case err != nil:
		return Result{Outcome: OutcomeFailed, Reason: err.Error(), Err: err}
	case !matched:
		return Result{Outcome: OutcomeNotFound, Reason: fmt.Sprintf("%s/%s does not exist", target.Collection, target.RegistrationID)}
	default:
		return Result{Outcome: OutcomeApplied}
	}
}

func (t Target) validate() error {
	if !t.Collection.IsValid() {
		return fmt.Errorf("invalid registration collection %q", t.Collection)
	}
	if strings.TrimSpace(t.RegistrationID) == "" {
		return errors.New("registration id required")
	}
	return nil
}
