package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records order, webhook, propagation and gateway activity.
type PaymentMetrics struct {
	ordersCreated   *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	propagations    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_orders_created_total",
		Help: "Payment orders created with the gateway.",
	}, []string{"registration_type"})
	ordersRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_orders_rejected_total",
		Help: "Payment order requests rejected before or by the gateway.",
	}, []string{"reason"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Gateway webhook deliveries by outcome.",
	}, []string{"outcome"})
	propagations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_registration_propagations_total",
		Help: "Registration payment updates by outcome and source.",
	}, []string{"outcome", "source"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(ordersCreated, ordersRejected, webhooks, propagations, gatewayDuration)
	return &PaymentMetrics{
		ordersCreated:   ordersCreated,
		ordersRejected:  ordersRejected,
		webhooks:        webhooks,
		propagations:    propagations,
		gatewayDuration: gatewayDuration,
	}
}

// IncOrderCreated counts a persisted order.
func (m *PaymentMetrics) IncOrderCreated(registrationType string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(registrationType)).Inc()
}

// IncOrderRejected counts a failed order creation.
func (m *PaymentMetrics) IncOrderRejected(reason string) {
	if m == nil || m.ordersRejected == nil {
		return
	}
	m.ordersRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncWebhook counts a webhook delivery outcome.
func (m *PaymentMetrics) IncWebhook(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPropagation counts a registration update attempt.
func (m *PaymentMetrics) IncPropagation(outcome, source string) {
	if m == nil || m.propagations == nil {
		return
	}
	m.propagations.WithLabelValues(normalizeLabel(outcome), normalizeLabel(source)).Inc()
}

// ObserveGatewayCall records gateway latency.
func (m *PaymentMetrics) ObserveGatewayCall(operation, outcome string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
