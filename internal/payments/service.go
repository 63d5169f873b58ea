package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/internal/registrations"
	"github.com/angelmondragon/regpay-backend/pkg/cashfree"
	"github.com/angelmondragon/regpay-backend/pkg/db/models"
	"github.com/angelmondragon/regpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
	"github.com/angelmondragon/regpay-backend/pkg/metrics"
)

const linkedMessage = "Transaction updated successfully"

// ServiceParams wires the payment service dependencies.
type ServiceParams struct {
	Repository Repository
	Gateway    Gateway
	Propagator Propagator
	URLs       URLBuilder
	Logger     *logger.Logger
	Events     EventPublisher
	Metrics    *metrics.PaymentMetrics
	Fees       FeeTable
	Clock      func() time.Time
	NewOrderID func(time.Time) string
}

// Service implements order creation, webhook reconciliation, status polling and
// transaction linking.
type Service struct {
	repo       Repository
	gateway    Gateway
	propagator Propagator
	urls       URLBuilder
	logg       *logger.Logger
	events     EventPublisher
	metrics    *metrics.PaymentMetrics
	fees       FeeTable
	now        func() time.Time
	newOrderID func(time.Time) string
}

// NewService validates the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment gateway required")
	}
	if params.Propagator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "registration propagator required")
	}
	if params.URLs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "callback url builder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if strings.TrimSpace(params.URLs.NotifyURL()) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook notify url required")
	}

	fees := params.Fees
	if len(fees) == 0 {
		fees = DefaultFeeTable()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	newOrderID := params.NewOrderID
	if newOrderID == nil {
		newOrderID = NewOrderID
	}

	return &Service{
		repo:       params.Repository,
		gateway:    params.Gateway,
		propagator: params.Propagator,
		urls:       params.URLs,
		logg:       params.Logger,
		events:     params.Events,
		metrics:    params.Metrics,
		fees:       fees,
		now:        func() time.Time { return clock().UTC() },
		newOrderID: newOrderID,
	}, nil
}

// CreateOrder validates the amount against the fee table, mints a gateway order
// and only then persists the PENDING transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	name := strings.TrimSpace(in.CustomerName)
	email := strings.TrimSpace(in.CustomerEmail)
	phone := strings.TrimSpace(in.CustomerPhone)
	if !in.Amount.Valid || name == "" || email == "" || phone == "" {
		s.metrics.IncOrderRejected("missing_fields")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields")
	}
	if !in.Amount.Decimal.IsPositive() {
		s.metrics.IncOrderRejected("invalid_amount")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Amount must be a positive number")
	}

	regType := enums.NormalizeRegistrationType(in.RegistrationType)
	expected := s.fees.Expected(regType)
	if !in.Amount.Decimal.Equal(expected) {
		s.metrics.IncOrderRejected("amount_mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid amount for registration type").
			WithDetails(map[string]any{
				"registrationType": regType,
				"expectedAmount":   expected.IntPart(),
			})
	}

	collection, err := enums.ParseRegistrationCollection(in.CollectionName)
	if err != nil {
		s.metrics.IncOrderRejected("invalid_collection")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid collection name")
	}

	now := s.now()
	orderID := s.newOrderID(now)
	ctx = s.logg.WithOrderID(ctx, orderID)

	order, err := s.gateway.CreateOrder(ctx, cashfree.CreateOrderRequest{
		OrderID:     orderID,
		OrderAmount: expected,
		Currency:    string(enums.CurrencyINR),
		Customer:    cashfree.Customer{Name: name, Email: email, Phone: phone},
		ReturnURL:   s.urls.ReturnURL(in.ReturnURL),
		NotifyURL:   s.urls.NotifyURL(),
		Note:        string(regType),
	})
	if err != nil {
		s.metrics.IncOrderRejected("gateway_error")
		return nil, upstream(err, "Failed to create payment order")
	}

	txn := &models.PaymentTransaction{
		OrderID:          orderID,
		Amount:           expected.IntPart(),
		Currency:         enums.CurrencyINR,
		Status:           enums.PaymentStatusPending,
		CustomerName:     name,
		CustomerEmail:    email,
		CustomerPhone:    phone,
		RegistrationType: regType,
		CollectionName:   string(collection),
		PaymentSessionID: order.PaymentSessionID,
		GatewayResponse:  order.Raw,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if regID := strings.TrimSpace(in.RegistrationID); regID != "" {
		txn.RegistrationID = &regID
		txn.LinkedAt = &now
	}

	if err := s.repo.Create(ctx, txn); err != nil {
		s.metrics.IncOrderRejected("persist_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist payment transaction")
	}

	s.metrics.IncOrderCreated(string(regType))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"registration_type": regType,
		"amount":            txn.Amount,
	}), "payment.order_created")

	return &CreateOrderResult{
		Success:          true,
		OrderID:          orderID,
		PaymentSessionID: order.PaymentSessionID,
		OrderAmount:      txn.Amount,
	}, nil
}

// HandleWebhook applies a verified gateway notification. Once the transaction
// write succeeds, nothing that follows can fail the call.
func (s *Service) HandleWebhook(ctx context.Context, event *cashfree.WebhookEvent) (*WebhookResult, error) {
	if event == nil || strings.TrimSpace(event.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	ctx = s.logg.WithOrderID(ctx, event.OrderID)

	txn, err := s.repo.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment transaction")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Transaction not found")
	}

	now := s.now()
	update := StatusUpdate{
		Status:          event.PaymentStatus,
		TransactionID:   event.TransactionID,
		PaymentMethod:   event.PaymentMethod,
		GatewayResponse: event.Raw,
		UpdatedAt:       now,
	}
	if event.PaymentStatus.IsWebhookSuccess() {
		update.PaymentDate = &now
	}

	found, err := s.repo.ApplyStatus(ctx, event.OrderID, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment transaction")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Transaction not found")
	}

	result := &WebhookResult{OrderID: event.OrderID, Status: event.PaymentStatus}

	if event.PaymentStatus.IsWebhookSuccess() && txn.Linked() {
		amount := decimal.NewFromInt(txn.Amount)
		if event.PaymentAmount != nil {
			amount = *event.PaymentAmount
		}
		payment := registrations.Payment{
			OrderID:          txn.OrderID,
			TransactionID:    firstNonNil(event.TransactionID, txn.TransactionID),
			Amount:           amount,
			Method:           firstNonNil(event.PaymentMethod, txn.PaymentMethod),
			PaidAt:           now,
			WebhookConfirmed: true,
		}
		result.Propagation = s.propagate(ctx, txn, payment, enums.SourceWebhook)
	}

	if event.PaymentStatus != txn.Status {
		s.publish(ctx, txn, event.PaymentStatus, enums.SourceWebhook, now)
	}

	s.logg.Info(s.logg.WithField(ctx, "payment_status", event.PaymentStatus), "payment.webhook_applied")
	return result, nil
}

// GetStatus pulls the authoritative order status from the gateway and applies it.
func (s *Service) GetStatus(ctx context.Context, in StatusInput) (*StatusResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Order ID is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	before, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment transaction")
	}
	if before == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Transaction not found")
	}

	order, err := s.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, upstream(err, "Failed to get payment status")
	}

	status := enums.NormalizePaymentStatus(order.OrderStatus)
	now := s.now()
	found, err := s.repo.ApplyStatus(ctx, orderID, StatusUpdate{
		Status:          status,
		GatewayResponse: order.Raw,
		UpdatedAt:       now,
		LastChecked:     &now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment transaction")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Transaction not found")
	}

	if status.IsPolledSuccess() {
		s.propagatePolled(ctx, orderID, now)
	}
	if status != before.Status {
		s.publish(ctx, before, status, enums.SourcePoll, now)
	}

	return &StatusResult{
		Success:        true,
		OrderID:        orderID,
		Status:         status,
		Amount:         order.OrderAmount.InexactFloat64(),
		PaymentDetails: order.Raw,
	}, nil
}

// propagatePolled re-reads the transaction so a link made after the poll began
// is honoured.
func (s *Service) propagatePolled(ctx context.Context, orderID string, now time.Time) {
	txn, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil || txn == nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", fmt.Sprint(err)), "payment.propagation_skipped")
		return
	}
	if !txn.Linked() {
		return
	}
	paidAt := now
	if txn.PaymentDate != nil {
		paidAt = *txn.PaymentDate
	}
	s.propagate(ctx, txn, registrations.Payment{
		OrderID:       txn.OrderID,
		TransactionID: txn.TransactionID,
		Amount:        decimal.NewFromInt(txn.Amount),
		Method:        txn.PaymentMethod,
		PaidAt:        paidAt,
	}, enums.SourcePoll)
}

// LinkTransaction binds an existing transaction to a registration document.
func (s *Service) LinkTransaction(ctx context.Context, in LinkInput) (*LinkResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	registrationID := strings.TrimSpace(in.RegistrationID)
	if orderID == "" || registrationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Order ID and Registration ID are required")
	}
	collection, err := enums.ParseRegistrationCollection(in.CollectionName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid collection name")
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	found, err := s.repo.Link(ctx, orderID, LinkUpdate{
		RegistrationID: registrationID,
		Collection:     collection,
		LinkedAt:       s.now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link payment transaction")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Transaction not found")
	}

	s.logg.Info(s.logg.WithRegistration(ctx, string(collection), registrationID), "payment.transaction_linked")
	return &LinkResult{Success: true, Message: linkedMessage}, nil
}

func (s *Service) propagate(ctx context.Context, txn *models.PaymentTransaction, payment registrations.Payment, source enums.PaymentEventSource) *PropagationReport {
	target := registrations.Target{
		Collection:     enums.RegistrationCollection(txn.CollectionName),
		RegistrationID: *txn.RegistrationID,
	}
	ctx = s.logg.WithRegistration(ctx, txn.CollectionName, target.RegistrationID)
	ctx = s.logg.WithField(ctx, "source", source)

	res := s.propagator.Propagate(ctx, target, payment)
	s.metrics.IncPropagation(string(res.Outcome), string(source))

	switch res.Outcome {
	case registrations.OutcomeApplied:
		s.logg.Info(ctx, "payment.registration_updated")
	case registrations.OutcomeNotFound:
		s.logg.Warn(s.logg.WithField(ctx, "reason", res.Reason), "payment.registration_missing")
	case registrations.OutcomeFailed:
		s.logg.Error(s.logg.WithField(ctx, "reason", res.Reason), "payment.registration_update_failed", res.Err)
	}
	return &PropagationReport{Outcome: string(res.Outcome), Reason: res.Reason}
}

func (s *Service) publish(ctx context.Context, txn *models.PaymentTransaction, status enums.PaymentStatus, source enums.PaymentEventSource, at time.Time) {
	if s.events == nil {
		return
	}
	event := StatusChangedEvent{
		EventType:      enums.EventPaymentStatusChanged,
		OrderID:        txn.OrderID,
		Status:         status,
		PreviousStatus: txn.Status,
		Source:         source,
		Amount:         txn.Amount,
		Collection:     txn.CollectionName,
		OccurredAt:     at,
	}
	if txn.RegistrationID != nil {
		event.RegistrationID = *txn.RegistrationID
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logg.Error(ctx, "payment.event_publish_failed", err)
	}
}

// upstream keeps typed gateway errors and wraps anything else as an upstream failure.
func upstream(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, msg+": "+err.Error())
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
