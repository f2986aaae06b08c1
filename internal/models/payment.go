package models

import "time"

type Payment struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	MembershipID *int      `json:"membership_id"`
	Amount       float64   `json:"amount"`
	PaymentMode  string    `json:"payment_mode"`
	Notes        string    `json:"notes"`
	PaidAt       time.Time `json:"paid_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	UserID       int     `json:"user_id"`
	MembershipID *int    `json:"membership_id,omitempty"`
	Amount       float64 `json:"amount"`
	PaymentMode  string  `json:"payment_mode"`
	Notes        string  `json:"notes"`
}
