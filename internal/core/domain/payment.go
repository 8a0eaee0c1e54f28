package domain

// PaymentStatusPaid is the only verification status treated as settled.
const PaymentStatusPaid = "PAID"

// Customer identifies the payer for a checkout order.
type Customer struct {
	ID    string `json:"customer_id"`
	Name  string `json:"customer_name"`
	Email string `json:"customer_email"`
	Phone string `json:"customer_phone"`
}

// PaymentOrder is sent to the backend to open a hosted-checkout session.
type PaymentOrder struct {
	OrderID  string   `json:"order_id"`
	Amount   float64  `json:"order_amount"`
	Currency string   `json:"order_currency"`
	Customer Customer `json:"customer_details"`
}

// PaymentSession is the handle passed to the provider's hosted checkout.
type PaymentSession struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"paymentSessionId"`
	ReturnURL string `json:"returnUrl"`
}

// PaymentVerification is the backend's authoritative view of an order.
type PaymentVerification struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Paid    bool   `json:"paid"`
	Message string `json:"message,omitempty"`
}
