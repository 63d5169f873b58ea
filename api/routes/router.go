package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/regpay-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/regpay-backend/api/controllers/webhooks"
	"github.com/angelmondragon/regpay-backend/api/middleware"
	"github.com/angelmondragon/regpay-backend/api/responses"
	"github.com/angelmondragon/regpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
	"github.com/angelmondragon/regpay-backend/pkg/metrics"
	"github.com/angelmondragon/regpay-backend/pkg/redis"
)

type webhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryKey string) (bool, error)
	Delete(ctx context.Context, deliveryKey string) error
}

type signingSecret interface {
	SecretKey() string
}

// RouterParams carries everything the HTTP surface is wired to.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	Payments        controllers.PaymentsService
	Webhooks        webhookcontrollers.CashfreeWebhookService
	WebhookSecret   signingSecret
	WebhookGuard    webhookGuard
	Redis           *redis.Client
	Metrics         *metrics.PaymentMetrics
	MetricsGatherer prometheus.Gatherer
	Readiness       map[string]controllers.Pinger
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "Method not allowed"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if cfg.Metrics.Enabled && p.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	// A nil *redis.Client must not reach the middleware as a non-nil interface.
	var limiter interface {
		FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	}
	var idempotencyStore redis.IdempotencyStore
	if p.Redis != nil {
		limiter = p.Redis
		idempotencyStore = p.Redis
	}
	orderPolicy := middleware.NewOrderRateLimitPolicy(
		"orders",
		cfg.RateLimit.OrderWindow,
		cfg.RateLimit.OrderIPLimit,
		cfg.RateLimit.OrderEmailLimit,
	)
	createOrder := middleware.OrderCreation(orderPolicy, limiter, idempotencyStore, cfg.RateLimit.IdempotencyTTL, logg)(
		controllers.CreatePaymentOrder(p.Payments, logg),
	)
	getStatus := controllers.GetPaymentStatus(p.Payments, logg)
	link := controllers.UpdatePaymentTransaction(p.Payments, logg)
	webhook := webhookcontrollers.CashfreeWebhook(p.Webhooks, p.WebhookSecret, p.WebhookGuard, p.Metrics, logg)

	// Paths the existing registration portal already calls.
	r.Method(http.MethodPost, "/createPaymentOrder", createOrder)
	r.Post("/getPaymentStatus", getStatus)
	r.Post("/updatePaymentTransaction", link)
	r.HandleFunc(config.WebhookPath, webhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Method(http.MethodPost, "/orders", createOrder)
			r.Post("/status", getStatus)
			r.Post("/link", link)
		})
		r.HandleFunc("/webhooks/cashfree", webhook)
	})

	return r
}
