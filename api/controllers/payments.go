package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/api/responses"
	"github.com/angelmondragon/regpay-backend/api/validators"
	"github.com/angelmondragon/regpay-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
)

// PaymentsService is the surface the payment endpoints call.
type PaymentsService interface {
	CreateOrder(ctx context.Context, in payments.CreateOrderInput) (*payments.CreateOrderResult, error)
	GetStatus(ctx context.Context, in payments.StatusInput) (*payments.StatusResult, error)
	LinkTransaction(ctx context.Context, in payments.LinkInput) (*payments.LinkResult, error)
}

type createPaymentOrderRequest struct {
	Amount           decimal.NullDecimal `json:"amount"`
	CustomerName     string              `json:"customerName" validate:"omitempty,max=200"`
	CustomerEmail    string              `json:"customerEmail" validate:"omitempty,max=254"`
	CustomerPhone    string              `json:"customerPhone" validate:"omitempty,max=32"`
	RegistrationType string              `json:"registrationType" validate:"omitempty,max=64"`
	RegistrationID   string              `json:"registrationId" validate:"omitempty,max=128"`
	CollectionName   string              `json:"collectionName" validate:"omitempty,max=64"`
	ReturnURL        string              `json:"returnUrl" validate:"omitempty,url"`
}

type paymentStatusRequest struct {
	OrderID string `json:"orderId" validate:"omitempty,max=64"`
}

type linkTransactionRequest struct {
	OrderID        string `json:"orderId" validate:"omitempty,max=64"`
	RegistrationID string `json:"registrationId" validate:"omitempty,max=128"`
	CollectionName string `json:"collectionName" validate:"omitempty,max=64"`
}

// CreatePaymentOrder mints a gateway order for a registration fee.
func CreatePaymentOrder(svc PaymentsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload createPaymentOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), payments.CreateOrderInput{
			Amount:           payload.Amount,
			CustomerName:     payload.CustomerName,
			CustomerEmail:    payload.CustomerEmail,
			CustomerPhone:    payload.CustomerPhone,
			RegistrationType: payload.RegistrationType,
			RegistrationID:   payload.RegistrationID,
			CollectionName:   payload.CollectionName,
			ReturnURL:        payload.ReturnURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetPaymentStatus polls the gateway for the authoritative order status.
func GetPaymentStatus(svc PaymentsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload paymentStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetStatus(r.Context(), payments.StatusInput{OrderID: payload.OrderID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdatePaymentTransaction links a transaction to its registration document.
func UpdatePaymentTransaction(svc PaymentsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload linkTransactionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LinkTransaction(r.Context(), payments.LinkInput{
			OrderID:        payload.OrderID,
			RegistrationID: payload.RegistrationID,
			CollectionName: payload.CollectionName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
