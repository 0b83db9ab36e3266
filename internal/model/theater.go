package model

import "time"

// Theater is a venue with one or more numbered screens.
type Theater struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Screens   []Screen  `json:"screens"`
	CreatedAt time.Time `json:"created_at"`
}

// Screen is one auditorium. ScreenNumber is unique within its theater.
type Screen struct {
	ScreenNumber int        `json:"screen_number"`
	TotalSeats   int        `json:"total_seats"`
	Layout       SeatLayout `json:"seat_layout"`
}

// SeatLayout describes a rectangular grid: every row label carries
// SeatsPerRow seats numbered from 1. Seat ids are "{row}{column}".
type SeatLayout struct {
	Rows        []string `json:"rows"`
	SeatsPerRow int      `json:"seats_per_row"`
}

// Screen returns the screen with the given number.
func (t *Theater) Screen(number int) (Screen, bool) {
	for _, s := range t.Screens {
		if s.ScreenNumber == number {
			return s, true
		}
	}
	return Screen{}, false
}
