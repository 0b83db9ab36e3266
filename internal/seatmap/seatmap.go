// Package seatmap turns a screen layout and the active bookings of a show
// into a per-seat status grid. Everything here is pure and safe to call
// concurrently.
package seatmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ErrInvalidLayout is returned for layouts that cannot produce a unique
// set of seat ids.
var ErrInvalidLayout = errors.New("invalid seat layout")

const (
	StatusBooked    = "booked"
	StatusAvailable = "available"
)

// Seat is one cell of an occupancy grid.
type Seat struct {
	Number string `json:"seat_number"`
	Status string `json:"status"`
}

// Validate checks that a layout resolves to unique, non-empty seat ids.
func Validate(layout model.SeatLayout) error {
	if len(layout.Rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidLayout)
	}
	if layout.SeatsPerRow <= 0 {
		return fmt.Errorf("%w: seats_per_row must be positive, got %d", ErrInvalidLayout, layout.SeatsPerRow)
	}
	seen := make(map[string]struct{}, len(layout.Rows))
	for _, row := range layout.Rows {
		if strings.TrimSpace(row) == "" {
			return fmt.Errorf("%w: blank row label", ErrInvalidLayout)
		}
		// seat ids are matched upper-cased and trimmed
		if row != NormalizeRow(row) {
			return fmt.Errorf("%w: row label %q must be upper-case without spaces", ErrInvalidLayout, row)
		}
		// a label ending in a digit could collide with another row ("A1"+"1" vs "A"+"11")
		if last := row[len(row)-1]; last >= '0' && last <= '9' {
			return fmt.Errorf("%w: row label %q ends in a digit", ErrInvalidLayout, row)
		}
		if _, dup := seen[row]; dup {
			return fmt.Errorf("%w: duplicate row %q", ErrInvalidLayout, row)
		}
		seen[row] = struct{}{}
	}
	return nil
}

// NormalizeRow is the canonical form of a row label.
func NormalizeRow(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// Resolve enumerates seat ids row by row, columns numbered from 1.
// For rows [A B] and 3 seats per row it returns [[A1 A2 A3] [B1 B2 B3]].
func Resolve(layout model.SeatLayout) ([][]string, error) {
	if err := Validate(layout); err != nil {
		return nil, err
	}
	grid := make([][]string, len(layout.Rows))
	for i, row := range layout.Rows {
		ids := make([]string, layout.SeatsPerRow)
		for col := 0; col < layout.SeatsPerRow; col++ {
			ids[col] = row + strconv.Itoa(col+1)
		}
		grid[i] = ids
	}
	return grid, nil
}

// Contains reports whether seat is one of the ids the layout resolves to.
// It assumes the layout is valid.
func Contains(layout model.SeatLayout, seat string) bool {
	for _, row := range layout.Rows {
		if !strings.HasPrefix(seat, row) {
			continue
		}
		n, err := strconv.Atoi(seat[len(row):])
		if err != nil || strconv.Itoa(n) != seat[len(row):] {
			continue
		}
		if n >= 1 && n <= layout.SeatsPerRow {
			return true
		}
	}
	return false
}

// Held returns the union of seats occupied by bookings that still hold
// them. Cancelled bookings are skipped.
func Held(bookings []model.Booking) map[string]struct{} {
	held := make(map[string]struct{})
	for _, b := range bookings {
		if !b.Status.Holds() {
			continue
		}
		for _, s := range b.Seats {
			held[s] = struct{}{}
		}
	}
	return held
}

// Occupancy marks every seat of the layout booked or available. Row order
// follows the layout.
func Occupancy(layout model.SeatLayout, bookings []model.Booking) ([][]Seat, error) {
	grid, err := Resolve(layout)
	if err != nil {
		return nil, err
	}
	held := Held(bookings)
	out := make([][]Seat, len(grid))
	for i, row := range grid {
		seats := make([]Seat, len(row))
		for j, id := range row {
			status := StatusAvailable
			if _, ok := held[id]; ok {
				status = StatusBooked
			}
			seats[j] = Seat{Number: id, Status: status}
		}
		out[i] = seats
	}
	return out, nil
}
