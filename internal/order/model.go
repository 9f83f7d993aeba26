package order

import "time"

// PaymentStatus is the internal payment lifecycle state of an order. The
// values are wire-visible (stored and returned as-is).
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
	StatusExpired PaymentStatus = "expired"
	StatusFailed  PaymentStatus = "failed"
)

// Terminal reports whether s admits no further automatic transitions
// except the explicit late-success override.
func (s PaymentStatus) Terminal() bool {
	return s == StatusPaid || s == StatusExpired || s == StatusFailed
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Order is one purchase attempt. The id doubles as the gateway transaction
// reference, so notifications correlate back without extra mapping state.
// Buyer fields are a snapshot captured at order time; GrossAmount is fixed at
// creation and never recomputed.
type Order struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"productId"`
	BuyerName     string        `json:"buyerName"`
	Email         string        `json:"email"`
	Address       string        `json:"address"`
	Quantity      int           `json:"quantity"`
	GrossAmount   int64         `json:"grossAmount"`
	SnapToken     *string       `json:"snapToken,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CheckoutInput is the validated checkout request body.
type CheckoutInput struct {
	ProductID string `json:"productId"`
	BuyerName string `json:"buyerName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResult is returned to the buyer to complete payment.
type CheckoutResult struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// ReconcileResult describes what a notification did to an order.
type ReconcileResult struct {
	OrderID  string
	Previous PaymentStatus
	Current  PaymentStatus
	Applied  bool
	Conflict bool
}
