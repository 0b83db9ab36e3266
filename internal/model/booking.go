package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Holds reports whether a booking in this status occupies its seats.
func (s BookingStatus) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking records a user's claim on a set of seats for one show.
//
// Fields:
//
//	ID               – UUID primary key.
//	UserID           – owner of the booking.
//	ShowID           – show the seats belong to.
//	Seats            – seat ids in request order.
//	TotalAmount      – len(Seats) × show price at creation.
//	Status           – pending, confirmed or cancelled.
//	CreatedAt        – booking time.
//	PaymentSessionID – checkout session attached by the payment flow.
type Booking struct {
	ID               string          `json:"id"`                           // bookings.id
	UserID           string          `json:"user_id"`                      // bookings.user_id
	ShowID           string          `json:"show_id"`                      // bookings.show_id
	Seats            []string        `json:"seats"`                        // booking_seats.seat_number
	TotalAmount      decimal.Decimal `json:"total_amount"`                 // bookings.total_amount
	Status           BookingStatus   `json:"status"`                       // bookings.status
	CreatedAt        time.Time       `json:"booking_time"`                 // bookings.created_at
	UpdatedAt        time.Time       `json:"updated_at"`                   // bookings.updated_at
	PaymentSessionID *string         `json:"payment_session_id,omitempty"` // bookings.payment_session_id (nullable)
}

// BookingDetail is a booking joined with the catalog records it refers
// to. Any of the joined records may be nil if it has since been deleted.
type BookingDetail struct {
	Booking
	Show    *Show    `json:"show,omitempty"`
	Movie   *Movie   `json:"movie,omitempty"`
	Theater *Theater `json:"theater,omitempty"`
}

// BookingSummary aggregates the bookings table for the admin dashboard.
type BookingSummary struct {
	Total        int             `json:"total_bookings"`
	Confirmed    int             `json:"confirmed_bookings"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}
