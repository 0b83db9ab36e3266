// Package payment runs hosted checkout for pending bookings and confirms
// them once the provider reports the session paid.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidWebhook is returned when a webhook payload fails signature
// verification or cannot be decoded.
var ErrInvalidWebhook = errors.New("invalid webhook")

// CheckoutRequest describes one hosted checkout for one booking.
type CheckoutRequest struct {
	BookingID  string
	UserID     string
	ShowID     string
	Seats      []string
	Amount     decimal.Decimal
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Session is the provider's checkout session.
type Session struct {
	ID  string
	URL string
}

// WebhookResult is the part of a provider notification the service acts on.
// SessionID is empty for events that do not concern a checkout session.
type WebhookResult struct {
	SessionID string
	Paid      bool
}

// Gateway is the payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
	ParseWebhook(payload []byte, signature string) (WebhookResult, error)
}
