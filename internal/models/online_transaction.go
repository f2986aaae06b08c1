package models

import "time"

// Online transaction status values.
const (
	TxnCreated  = "created"
	TxnCaptured = "captured"
	TxnFailed   = "failed"
)

// OnlineTransaction tracks a Razorpay order through its lifecycle. A captured
// transaction inserts a canonical payment, which the next sync pass mirrors
// into the ledger.
type OnlineTransaction struct {
	ID              int       `json:"id"`
	OrderID         string    `json:"order_id"`
	RazorpayPayment string    `json:"razorpay_payment_id,omitempty"`
	UserID          int       `json:"user_id"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateOrderRequest represents the request body for creating an online order
type CreateOrderRequest struct {
	UserID int     `json:"user_id"`
	Amount float64 `json:"amount"`
}

// CreateOrderResponse is returned to the checkout frontend
type CreateOrderResponse struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
	KeyID   string  `json:"key_id"`
}
