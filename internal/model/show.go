package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Show is a scheduled screening of a movie on one screen of a theater.
// Shows are read-only to the booking core; only price and the screen
// reference matter for seat maps and totals.
//
// Fields:
//
//	ID           – UUID primary key.
//	MovieID      – movie being screened.
//	TheaterID    – theater hosting the screening.
//	ScreenNumber – screen inside the theater whose layout applies.
//	Date         – calendar day, YYYY-MM-DD.
//	StartTime    – HH:MM local start.
//	EndTime      – HH:MM local end.
//	Price        – price of one seat.
type Show struct {
	ID           string          `json:"id"`            // shows.id
	MovieID      string          `json:"movie_id"`      // shows.movie_id
	TheaterID    string          `json:"theater_id"`    // shows.theater_id
	ScreenNumber int             `json:"screen_number"` // shows.screen_number
	Date         string          `json:"date"`          // shows.show_date
	StartTime    string          `json:"start_time"`    // shows.start_time
	EndTime      string          `json:"end_time"`      // shows.end_time
	Price        decimal.Decimal `json:"price"`         // shows.price
	CreatedAt    time.Time       `json:"created_at"`    // shows.created_at
}

// ShowFilter narrows a show listing. Empty fields do not filter.
type ShowFilter struct {
	MovieID   string
	TheaterID string
	Date      string
}
