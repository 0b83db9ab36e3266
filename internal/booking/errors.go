package booking

import (
	"errors"
	"fmt"
)

// Sentinel kinds returned by the ledger. Handlers map them to HTTP
// statuses with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("seat already booked")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidState   = errors.New("invalid booking state")
	ErrInvalidRequest = errors.New("invalid request")
)

// ConflictError names the first requested seat that is already held.
type ConflictError struct {
	Seat string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat %s is already booked", e.Seat)
}

// Is makes errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// kindError carries a caller-facing message while unwrapping to one of
// the sentinel kinds.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Errorf builds an error of the given kind for collaborators such as the
// payment service, so handlers map every domain error the same way.
func Errorf(kind error, format string, args ...any) error {
	return newError(kind, format, args...)
}
