package model

import "time"

// Customer-data keys written by the attribution resolver.
const (
	MarkerSentAt = "messenger_sent_at"
	MarkerPSID   = "messenger_psid"
)

// Order is the read-back view of a created order.
type Order struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id"`
	Number        string            `json:"number"`
	OrderTypeName string            `json:"order_type_name"`
	Items         []CartLine        `json:"items"`
	Subtotal      float64           `json:"subtotal"`
	DeliveryFee   float64           `json:"delivery_fee"`
	Total         float64           `json:"total"`
	PaymentName   string            `json:"payment_name,omitempty"`
	CustomerName  string            `json:"customer_name,omitempty"`
	CustomerData  map[string]string `json:"customer_data"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Delivered reports whether a confirmation was already sent for this order.
func (o Order) Delivered() bool {
	_, ok := o.CustomerData[MarkerSentAt]
	return ok
}

type CreateOrderRequest struct {
	TenantID        string            `json:"tenant_id"`
	// PSID is set for orders placed in the chat. The customer already got
	// the confirmation there, so the order is stored as delivered to them.
	PSID            string            `json:"psid,omitempty"`
	Lines           []CartLine        `json:"lines"`
	CustomerName    string            `json:"customer_name"`
	CustomerContact string            `json:"customer_contact"`
	OrderTypeID     string            `json:"order_type_id"`
	OrderTypeName   string            `json:"order_type_name"`
	Form            map[string]string `json:"form"`
	DeliveryFee     *float64          `json:"delivery_fee,omitempty"`
	QuoteID         string            `json:"quote_id,omitempty"`
	PaymentID       string            `json:"payment_id,omitempty"`
	PaymentName     string            `json:"payment_name,omitempty"`
	PaymentDetails  string            `json:"payment_details,omitempty"`
	PaymentQR       string            `json:"payment_qr,omitempty"`
}

// CustomerData returns the form values to store with the order, plus the
// delivery marker when the order was placed in the chat.
func (r CreateOrderRequest) CustomerData(at time.Time) map[string]string {
	data := make(map[string]string, len(r.Form)+2)
	for k, v := range r.Form {
		data[k] = v
	}
	if r.PSID != "" {
		data[MarkerSentAt] = at.UTC().Format(time.RFC3339)
		data[MarkerPSID] = r.PSID
	}
	return data
}

// CreateOrderResult carries a business outcome. Transport failures are
// returned as errors instead.
type CreateOrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Number  string `json:"number,omitempty"`
	Error   string `json:"error,omitempty"`
}

type QuoteRequest struct {
	TenantID string
	Form     map[string]string
	Subtotal float64
}
