// Package queue carries booking lifecycle events over RabbitMQ: the
// publisher used by the ledger and the consumer that appends them to the
// booking audit log.
package queue

import "github.com/shopspring/decimal"

// Routing keys on the bookings exchange.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventBookingConfirmed = "booking.confirmed"
)

// BookingEvent is published after a booking is persisted or changes
// status. It carries enough for consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	Type        string          `json:"type"`
	BookingID   string          `json:"booking_id"`
	UserID      string          `json:"user_id"`
	ShowID      string          `json:"show_id"`
	Seats       []string        `json:"seats"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	OccurredAt  string          `json:"occurred_at"`
}
