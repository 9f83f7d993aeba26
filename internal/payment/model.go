package payment

import "encoding/json"

// TransactionRequest is the gateway-agnostic shape of a transaction-creation
// call: one order, one product, quantity units.
type TransactionRequest struct {
	OrderID     string
	GrossAmount int64
	Items       []LineItem
	Buyer       BuyerDetails
}

type LineItem struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type BuyerDetails struct {
	Name    string
	Email   string
	Address string
}

// TransactionToken is what the buyer needs to complete payment.
type TransactionToken struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Notification is the server-to-server callback body Midtrans posts after a
// transaction reaches a new status. Delivery is at-least-once and unordered.
type Notification struct {
	TransactionID     string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type,omitempty"`
	FraudStatus       string `json:"fraud_status,omitempty"`

	Raw json.RawMessage `json:"-"`

	// SignatureValid is set by Gateway.VerifySignature when the key check
	// actually ran and passed; it stays false when verification is skipped.
	SignatureValid bool `json:"-"`
}
