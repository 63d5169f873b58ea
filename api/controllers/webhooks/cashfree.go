package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/regpay-backend/api/responses"
	"github.com/angelmondragon/regpay-backend/internal/payments"
	"github.com/angelmondragon/regpay-backend/pkg/cashfree"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
)

const maxWebhookBytes = 1 << 20

type CashfreeWebhookService interface {
	HandleWebhook(ctx context.Context, event *cashfree.WebhookEvent) (*payments.WebhookResult, error)
}

type cashfreeWebhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryKey string) (bool, error)
	Delete(ctx context.Context, deliveryKey string) error
}

type signingSecret interface {
	SecretKey() string
}

type webhookMetrics interface {
	IncWebhook(outcome string)
}

// CashfreeWebhook verifies, de-duplicates and applies gateway payment notifications.
// The gateway only looks at the status code, so successes answer with a bare "OK".
func CashfreeWebhook(svc CashfreeWebhookService, secret signingSecret, guard cashfreeWebhookGuard, metrics webhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		record := func(outcome string) {
			if metrics != nil {
				metrics.IncWebhook(outcome)
			}
		}

		if r.Method != http.MethodPost {
			record("method_not_allowed")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "Method not allowed"))
			return
		}
		if svc == nil || secret == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler not configured"))
			return
		}

		timestamp := r.Header.Get(cashfree.HeaderTimestamp)
		signature := r.Header.Get(cashfree.HeaderSignature)
		if err := cashfree.RequireSignatureHeaders(timestamp, signature); err != nil {
			record("invalid_signature")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			record("invalid_payload")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if err := cashfree.VerifySignature(secret.SecretKey(), timestamp, payload, signature); err != nil {
			record("invalid_signature")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := cashfree.ParseWebhook(payload)
		if err != nil {
			record("invalid_payload")
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(logg.WithOrderID(ctx, event.OrderID), map[string]any{
				"payment_status": event.PaymentStatus,
				"webhook_type":   event.Type,
			})
		}

		deliveryKey := event.ReplayKey(timestamp)
		seen, err := guard.CheckAndMark(ctx, deliveryKey)
		if err != nil {
			record("error")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check webhook replay"))
			return
		}
		if seen {
			record("duplicate")
			if logg != nil {
				logg.Info(ctx, "cashfree.webhook_duplicate")
			}
			responses.WriteText(w, http.StatusOK, "OK")
			return
		}

		if _, err := svc.HandleWebhook(ctx, event); err != nil {
			if delErr := guard.Delete(ctx, deliveryKey); delErr != nil && logg != nil {
				logg.Error(ctx, "cashfree.webhook_replay_release_failed", delErr)
			}
			switch {
			case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
				record("not_found")
			case errors.Is(err, context.Canceled):
				record("canceled")
			default:
				record("error")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record("processed")
		responses.WriteText(w, http.StatusOK, "OK")
	}
}
