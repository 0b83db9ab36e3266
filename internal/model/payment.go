package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"

	TransactionPending  = "pending"
	TransactionComplete = "complete"
)

// PaymentTransaction tracks one checkout session for one booking.
type PaymentTransaction struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	BookingID     string          `json:"booking_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
