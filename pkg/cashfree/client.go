package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/regpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
	"github.com/angelmondragon/regpay-backend/pkg/logger"
)

const (
	sandboxEnv    = config.CashfreeModeSandbox
	productionEnv = config.CashfreeModeProduction

	headerAPIVersion   = "x-api-version"
	headerClientID     = "x-client-id"
	headerClientSecret = "x-client-secret"

	maxResponseBytes = 1 << 20
)

var (
	errClientIDRequired   = errors.New("cashfree client id is required")
	errSecretRequired     = errors.New("cashfree secret key is required")
	errInvalidCashfreeEnv = fmt.Errorf("cashfree mode must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired     = errors.New("cashfree logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://sandbox.cashfree.com/pg",
	productionEnv: "https://api.cashfree.com/pg",
}

// LatencyObserver receives the duration of every gateway call.
type LatencyObserver interface {
	ObserveGatewayCall(operation, outcome string, duration time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLatencyObserver records gateway latency.
func WithLatencyObserver(obs LatencyObserver) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

// Client talks to the Cashfree PG orders API with centralized auth, logging and error mapping.
type Client struct {
	http        *http.Client
	baseURL     string
	clientID    string
	secretKey   string
	apiVersion  string
	environment string
	logger      *logger.Logger
	observer    LatencyObserver
}

// NewClient validates credentials and resolves the base URL for the configured mode.
func NewClient(ctx context.Context, cfg config.CashfreeConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretRequired
	}

	baseURL := baseURLs[env]
	if override := strings.TrimSpace(cfg.BaseURLOverride); override != "" {
		baseURL = override
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		secretKey:   secret,
		apiVersion:  strings.TrimSpace(cfg.APIVersion),
		environment: env,
		logger:      logg,
	}
	for _, opt := range opts {
		opt(c)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"environment": env,
		"base_url":    c.baseURL,
	}), "cashfree client initialized")
	return c, nil
}

// Environment reports the normalized gateway mode.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SecretKey returns the key used to sign webhooks.
func (c *Client) SecretKey() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// CreateOrder mints a gateway order and checkout session.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	const op = "create_order"
	c.log(ctx, "request", op, map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   req.OrderAmount.String(),
		"customer_email": req.Customer.Email,
		"customer_phone": req.Customer.Phone,
		"notify_url":     req.NotifyURL,
	})

	raw, err := c.do(ctx, http.MethodPost, "/orders", req.wire(), op)
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(raw)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "cashfree returned an unreadable order")
	}

	c.log(ctx, "response", op, map[string]any{
		"order_id":     order.OrderID,
		"order_status": order.OrderStatus,
	})
	return order, nil
}

// GetOrder fetches the authoritative order status.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	const op = "get_order"
	c.log(ctx, "request", op, map[string]any{"order_id": orderID})

	raw, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, op)
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(raw)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "cashfree returned an unreadable order")
	}

	c.log(ctx, "response", op, map[string]any{
		"order_id":     order.OrderID,
		"order_status": order.OrderStatus,
	})
	return order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, op string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cashfree request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cashfree request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerAPIVersion, c.apiVersion)
	req.Header.Set(headerClientID, c.clientID)
	req.Header.Set(headerClientSecret, c.secretKey)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, "transport_error", started)
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, fmt.Sprintf("cashfree %s failed: %v", strings.ReplaceAll(op, "_", " "), err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(op, "transport_error", started)
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "read cashfree response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(op, "error_status", started)
		mapped := mapGatewayError(resp.StatusCode, raw, op)
		c.log(ctx, "error", op, map[string]any{
			"error":       mapped.Message(),
			"http_status": resp.StatusCode,
		})
		return nil, mapped
	}

	c.observe(op, "ok", started)
	return raw, nil
}

func (c *Client) observe(op, outcome string, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveGatewayCall(op, outcome, time.Since(started))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("cashfree %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("cashfree %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "email", "phone", "session"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// apiError is the structured error body returned on non-2xx responses.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

func mapGatewayError(status int, body []byte, op string) *pkgerrors.Error {
	var payload apiError
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = strings.TrimSpace(payload.Message)
	}
	if msg == "" {
		msg = fmt.Sprintf("cashfree %s failed with status %d", strings.ReplaceAll(op, "_", " "), status)
	}

	details := map[string]any{"http_status": status}
	if payload.Code != "" {
		details["gateway_code"] = payload.Code
	}
	if payload.Type != "" {
		details["gateway_type"] = payload.Type
	}
	cause := fmt.Errorf("cashfree %s: status %d: %s", op, status, msg)
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, cause, msg).WithDetails(details)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidCashfreeEnv
	}
}
