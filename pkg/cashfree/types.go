package cashfree

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Customer is the payer captured on the order.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// CreateOrderRequest is the input for POST /orders.
type CreateOrderRequest struct {
	OrderID     string
	OrderAmount decimal.Decimal
	Currency    string
	Customer    Customer
	ReturnURL   string
	NotifyURL   string
	Note        string
}

type createOrderBody struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails customerDetails `json:"customer_details"`
	OrderMeta       orderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url"`
}

func (r CreateOrderRequest) wire() createOrderBody {
	currency := r.Currency
	if currency == "" {
		currency = "INR"
	}
	return createOrderBody{
		OrderID:       r.OrderID,
		OrderAmount:   r.OrderAmount.InexactFloat64(),
		OrderCurrency: currency,
		CustomerDetails: customerDetails{
			CustomerID:    CustomerID(r.Customer.Phone, r.Customer.Email),
			CustomerName:  r.Customer.Name,
			CustomerEmail: r.Customer.Email,
			CustomerPhone: r.Customer.Phone,
		},
		OrderMeta: orderMeta{
			ReturnURL: r.ReturnURL,
			NotifyURL: r.NotifyURL,
		},
		OrderNote: r.Note,
	}
}

// CustomerID derives the alphanumeric customer reference the gateway requires,
// preferring the phone digits and falling back to the email local part.
func CustomerID(phone, email string) string {
	if digits := keep(phone, unicode.IsDigit); digits != "" {
		return "cust_" + digits
	}
	local := email
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	if id := keep(local, func(r rune) bool { return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) }); id != "" {
		return "cust_" + strings.ToLower(id)
	}
	return "cust_guest"
}

func keep(s string, allow func(rune) bool) string {
	var b strings.Builder
	for _, r := range s {
		if allow(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Order is the subset of the gateway order the service models. Raw keeps the
// full body for audit and for callers that need unmodeled fields.
type Order struct {
	OrderID          string          `json:"order_id"`
	OrderAmount      decimal.Decimal `json:"order_amount"`
	OrderCurrency    string          `json:"order_currency"`
	OrderStatus      string          `json:"order_status"`
	PaymentSessionID string          `json:"payment_session_id"`
	Raw              json.RawMessage `json:"-"`
}

func decodeOrder(raw []byte) (*Order, error) {
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	order.Raw = append(json.RawMessage(nil), raw...)
	return &order, nil
}
