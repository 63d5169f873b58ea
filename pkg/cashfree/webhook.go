package cashfree

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/regpay-backend/pkg/errors"
)

const (
	HeaderSignature = "x-webhook-signature"
	HeaderTimestamp = "x-webhook-timestamp"
)

// ComputeSignature returns base64(HMAC-SHA256(secret, timestamp || body)).
func ComputeSignature(secret, timestamp string, body []byte) string {
	return base64.StdEncoding.EncodeToString(sign(secret, timestamp, body))
}

func sign(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return mac.Sum(nil)
}

// RequireSignatureHeaders rejects deliveries that carry no signature or timestamp,
// before any of the body is read.
func RequireSignatureHeaders(timestamp, signature string) error {
	if strings.TrimSpace(signature) == "" || strings.TrimSpace(timestamp) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing webhook signature headers")
	}
	return nil
}

// VerifySignature authenticates a webhook delivery. Missing headers, malformed
// or wrong-length signatures and digest mismatches all yield CodeUnauthorized.
func VerifySignature(secret, timestamp string, body []byte, signature string) error {
	if err := RequireSignatureHeaders(timestamp, signature); err != nil {
		return err
	}
	signature = strings.TrimSpace(signature)
	timestamp = strings.TrimSpace(timestamp)
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured")
	}

	provided, err := base64.StdEncoding.Strict().DecodeString(signature)
	if err != nil || len(provided) != sha256.Size {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	if !hmac.Equal(provided, sign(secret, timestamp, body)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}

// WebhookEvent is the canonical payment notification regardless of payload shape.
type WebhookEvent struct {
	Type          string
	EventTime     string
	OrderID       string
	PaymentStatus enums.PaymentStatus
	PaymentAmount *decimal.Decimal
	PaymentMethod *string
	TransactionID *string
	Raw           json.RawMessage
}

// ReplayKey identifies an exact delivery for duplicate suppression.
func (e WebhookEvent) ReplayKey(timestamp string) string {
	return strings.Join([]string{e.OrderID, string(e.PaymentStatus), strings.TrimSpace(timestamp)}, ":")
}

type paymentFields struct {
	OrderID       string       `json:"order_id"`
	PaymentStatus string       `json:"payment_status"`
	PaymentAmount *flexDecimal `json:"payment_amount"`
	PaymentMethod flexMethod   `json:"payment_method"`
	TransactionID flexString   `json:"transaction_id"`
	CFPaymentID   flexString   `json:"cf_payment_id"`
}

type webhookEnvelope struct {
	paymentFields
	Type      string          `json:"type"`
	EventTime string          `json:"event_time"`
	Data      json.RawMessage `json:"data"`
}

type webhookData struct {
	paymentFields
	Order *struct {
		OrderID string `json:"order_id"`
	} `json:"order"`
	Payment *paymentFields `json:"payment"`
}

// ParseWebhook normalizes the flat, data-flat and data.order/data.payment shapes.
// The most specific location wins when a field appears more than once.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}

	event := &WebhookEvent{
		Type:      env.Type,
		EventTime: env.EventTime,
		Raw:       append(json.RawMessage(nil), body...),
	}
	merge(event, env.paymentFields)

	if trimmed := bytes.TrimSpace(env.Data); len(trimmed) > 0 && trimmed[0] == '{' {
		var data webhookData
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook data")
		}
		merge(event, data.paymentFields)
		if data.Payment != nil {
			merge(event, *data.Payment)
		}
		if data.Order != nil && strings.TrimSpace(data.Order.OrderID) != "" {
			event.OrderID = strings.TrimSpace(data.Order.OrderID)
		}
	}

	if event.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	if event.PaymentStatus == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_status is required")
	}
	return event, nil
}

func merge(event *WebhookEvent, f paymentFields) {
	if v := strings.TrimSpace(f.OrderID); v != "" {
		event.OrderID = v
	}
	if v := enums.NormalizePaymentStatus(f.PaymentStatus); v != "" {
		event.PaymentStatus = v
	}
	if f.PaymentAmount != nil && f.PaymentAmount.set {
		amount := f.PaymentAmount.value
		event.PaymentAmount = &amount
	}
	if f.PaymentMethod != "" {
		method := string(f.PaymentMethod)
		event.PaymentMethod = &method
	}
	switch {
	case f.TransactionID != "":
		id := string(f.TransactionID)
		event.TransactionID = &id
	case f.CFPaymentID != "":
		id := string(f.CFPaymentID)
		event.TransactionID = &id
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexMethod accepts either a method name or the gateway's object form
// ({"upi": {...}}), in which case the method is the object key.
type flexMethod string

func (m *flexMethod) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*m = flexMethod(strings.TrimSpace(v))
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			*m = flexMethod(keys[0])
		}
	}
	return nil
}

// flexDecimal accepts a JSON number or numeric string.
type flexDecimal struct {
	value decimal.Decimal
	set   bool
}

func (d *flexDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if err := d.value.UnmarshalJSON(b); err != nil {
		return err
	}
	d.set = true
	return nil
}
