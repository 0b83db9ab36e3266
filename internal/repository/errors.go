// Package repository contains the MySQL data access layer and the error
// values shared by every store implementation. Callers translate these
// into domain errors; handlers never see them directly.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrStaleStatus is returned by a compare-and-set status update when the
// row no longer carries the expected status.
var ErrStaleStatus = errors.New("status changed concurrently")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a delete cannot proceed because other
// rows still depend on the target (e.g. a show with bookings).
var ErrConflict = errors.New("conflict")

// SeatTakenError is returned when inserting a booking violates the
// per-show seat uniqueness constraint.
type SeatTakenError struct {
	ShowID string
	Seat   string
}

func (e *SeatTakenError) Error() string {
	return fmt.Sprintf("seat %s already taken for show %s", e.Seat, e.ShowID)
}
