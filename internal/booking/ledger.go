// Package booking owns booking records and their status transitions. It
// guarantees that no two bookings holding seats for the same show share
// a seat id, and it tells viewers whenever occupancy changes.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/realtime"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/seatmap"
)

// ShowFinder loads shows. A missing show is repository.ErrNotFound.
type ShowFinder interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
}

// TheaterFinder loads theaters with their screens.
type TheaterFinder interface {
	GetByID(ctx context.Context, id string) (*model.Theater, error)
}

// Store persists bookings. Create reports a seat uniqueness violation as
// *repository.SeatTakenError; Transition is a compare-and-set that fails
// with repository.ErrStaleStatus when the current status is not from.
type Store interface {
	ActiveByShow(ctx context.Context, showID string) ([]model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Transition(ctx context.Context, id string, from, to model.BookingStatus) error
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	SetPaymentSession(ctx context.Context, id, sessionID string) error
}

// Notifier receives seat updates for a show. Delivery is best effort.
type Notifier interface {
	Publish(showID string, ev realtime.Event)
}

// EventPublisher forwards lifecycle events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Deps wires a Ledger. Events and Log may be nil.
type Deps struct {
	Shows    ShowFinder
	Theaters TheaterFinder
	Store    Store
	Locker   Locker
	Notifier Notifier
	Events   EventPublisher
	Log      *zap.Logger
}

// Ledger is the authoritative booking service.
type Ledger struct {
	shows    ShowFinder
	theaters TheaterFinder
	store    Store
	locker   Locker
	notifier Notifier
	events   EventPublisher
	log      *zap.Logger

	now          func() time.Time
	newID        func() string
	eventTimeout time.Duration
}

func NewLedger(d Deps) *Ledger {
	if d.Shows == nil || d.Theaters == nil || d.Store == nil || d.Notifier == nil {
		panic("booking: nil dependency passed to NewLedger")
	}
	locker := d.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Ledger{
		shows:        d.Shows,
		theaters:     d.Theaters,
		store:        d.Store,
		locker:       locker,
		notifier:     d.Notifier,
		events:       d.Events,
		log:          logger.OrNop(d.Log).Named("ledger"),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
		eventTimeout: 3 * time.Second,
	}
}

func lockKey(showID string) string { return "show:" + showID }

// normalizeSeats trims and upper-cases ids and rejects empty input or
// an id requested twice.
func normalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, newError(ErrInvalidRequest, "at least one seat is required")
	}
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			return nil, newError(ErrInvalidRequest, "seat id must not be blank")
		}
		if _, dup := seen[s]; dup {
			return nil, newError(ErrInvalidRequest, "seat %s requested more than once", s)
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// loadShowLayout returns the show and the layout of the screen it plays on.
func (l *Ledger) loadShowLayout(ctx context.Context, showID string) (*model.Show, model.SeatLayout, error) {
	show, err := l.shows.GetByID(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.SeatLayout{}, newError(ErrNotFound, "show not found")
		}
		return nil, model.SeatLayout{}, fmt.Errorf("load show: %w", err)
	}
	theater, err := l.theaters.GetByID(ctx, show.TheaterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.SeatLayout{}, newError(ErrNotFound, "theater not found")
		}
		return nil, model.SeatLayout{}, fmt.Errorf("load theater: %w", err)
	}
	screen, ok := theater.Screen(show.ScreenNumber)
	if !ok {
		return nil, model.SeatLayout{}, newError(ErrNotFound, "screen not found")
	}
	return show, screen.Layout, nil
}

// SeatMap returns the current occupancy grid for a show.
func (l *Ledger) SeatMap(ctx context.Context, showID string) (*model.Show, [][]seatmap.Seat, error) {
	show, layout, err := l.loadShowLayout(ctx, showID)
	if err != nil {
		return nil, nil, err
	}
	active, err := l.store.ActiveByShow(ctx, showID)
	if err != nil {
		return nil, nil, fmt.Errorf("load bookings: %w", err)
	}
	grid, err := seatmap.Occupancy(layout, active)
	if err != nil {
		if errors.Is(err, seatmap.ErrInvalidLayout) {
			return nil, nil, newError(ErrNotFound, "screen layout unavailable: %v", err)
		}
		return nil, nil, err
	}
	return show, grid, nil
}

// Create books seats for the caller. The whole read-check-write runs
// under the show's lock and the seat_update event is published before
// the lock is released, so viewers see updates in commit order.
func (l *Ledger) Create(ctx context.Context, who model.Identity, showID string, seats []string) (*model.Booking, error) {
	b, err := l.create(ctx, who, showID, seats)
	metrics.BookingOp("create", outcome(err))
	if err != nil {
		return nil, err
	}
	l.emit(ctx, queue.EventBookingCreated, b)
	return b, nil
}

func (l *Ledger) create(ctx context.Context, who model.Identity, showID string, seats []string) (*model.Booking, error) {
	show, layout, err := l.loadShowLayout(ctx, showID)
	if err != nil {
		return nil, err
	}
	seats, err = normalizeSeats(seats)
	if err != nil {
		return nil, err
	}
	if err := seatmap.Validate(layout); err != nil {
		return nil, newError(ErrNotFound, "screen layout unavailable: %v", err)
	}
	for _, s := range seats {
		if !seatmap.Contains(layout, s) {
			return nil, newError(ErrInvalidRequest, "seat %s does not exist on this screen", s)
		}
	}

	unlock, err := l.locker.Lock(ctx, lockKey(showID))
	if err != nil {
		return nil, fmt.Errorf("lock show: %w", err)
	}
	defer unlock()

	active, err := l.store.ActiveByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	held := seatmap.Held(active)
	for _, s := range seats {
		if _, taken := held[s]; taken {
			return nil, &ConflictError{Seat: s}
		}
	}

	now := l.now()
	b := &model.Booking{
		ID:          l.newID(),
		UserID:      who.UserID,
		ShowID:      show.ID,
		Seats:       seats,
		TotalAmount: show.Price.Mul(decimal.NewFromInt(int64(len(seats)))),
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.Create(ctx, b); err != nil {
		var taken *repository.SeatTakenError
		if errors.As(err, &taken) {
			return nil, &ConflictError{Seat: taken.Seat}
		}
		return nil, fmt.Errorf("save booking: %w", err)
	}

	l.notifier.Publish(show.ID, realtime.SeatUpdate(b.Seats, seatmap.StatusBooked))
	return b, nil
}

// Cancel releases the seats of a booking owned by the caller.
func (l *Ledger) Cancel(ctx context.Context, who model.Identity, bookingID string) (*model.Booking, error) {
	b, err := l.cancel(ctx, who, bookingID)
	metrics.BookingOp("cancel", outcome(err))
	if err != nil {
		return nil, err
	}
	l.emit(ctx, queue.EventBookingCancelled, b)
	return b, nil
}

func (l *Ledger) cancel(ctx context.Context, who model.Identity, bookingID string) (*model.Booking, error) {
	b, err := l.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != who.UserID {
		return nil, newError(ErrForbidden, "not authorized")
	}
	if b.Status == model.StatusCancelled {
		return nil, newError(ErrInvalidState, "booking already cancelled")
	}

	unlock, err := l.locker.Lock(ctx, lockKey(b.ShowID))
	if err != nil {
		return nil, fmt.Errorf("lock show: %w", err)
	}
	defer unlock()

	// a concurrent confirm may move pending to confirmed between reads
	for attempt := 0; ; attempt++ {
		err = l.store.Transition(ctx, b.ID, b.Status, model.StatusCancelled)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrStaleStatus) || attempt >= 2 {
			return nil, fmt.Errorf("cancel booking: %w", err)
		}
		if b, err = l.load(ctx, bookingID); err != nil {
			return nil, err
		}
		if b.Status == model.StatusCancelled {
			return nil, newError(ErrInvalidState, "booking already cancelled")
		}
	}
	b.Status = model.StatusCancelled
	b.UpdatedAt = l.now()

	l.notifier.Publish(b.ShowID, realtime.SeatUpdate(b.Seats, seatmap.StatusAvailable))
	return b, nil
}

// Confirm marks a pending booking as paid. Confirming twice is a no-op
// and so is confirming a cancelled booking, which is only logged. No
// seat update is published because occupancy does not change.
func (l *Ledger) Confirm(ctx context.Context, bookingID string) (*model.Booking, error) {
	b, changed, err := l.confirm(ctx, bookingID)
	switch {
	case err != nil:
		metrics.BookingOp("confirm", outcome(err))
		return nil, err
	case changed:
		metrics.BookingOp("confirm", "ok")
		l.emit(ctx, queue.EventBookingConfirmed, b)
	default:
		metrics.BookingOp("confirm", "noop")
	}
	return b, nil
}

func (l *Ledger) confirm(ctx context.Context, bookingID string) (*model.Booking, bool, error) {
	for attempt := 0; ; attempt++ {
		b, err := l.load(ctx, bookingID)
		if err != nil {
			return nil, false, err
		}
		switch b.Status {
		case model.StatusConfirmed:
			return b, false, nil
		case model.StatusCancelled:
			l.log.Warn("confirm on cancelled booking ignored",
				zap.String("booking_id", b.ID),
				zap.String("show_id", b.ShowID),
			)
			return b, false, nil
		}
		err = l.store.Transition(ctx, b.ID, model.StatusPending, model.StatusConfirmed)
		if err == nil {
			b.Status = model.StatusConfirmed
			b.UpdatedAt = l.now()
			return b, true, nil
		}
		if !errors.Is(err, repository.ErrStaleStatus) || attempt >= 2 {
			return nil, false, fmt.Errorf("confirm booking: %w", err)
		}
	}
}

// Get returns a booking visible to the caller: its owner or an admin.
func (l *Ledger) Get(ctx context.Context, who model.Identity, bookingID string) (*model.Booking, error) {
	b, err := l.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != who.UserID && !who.IsAdmin() {
		return nil, newError(ErrForbidden, "not authorized")
	}
	return b, nil
}

// ListMine returns the caller's bookings, newest first.
func (l *Ledger) ListMine(ctx context.Context, who model.Identity) ([]model.Booking, error) {
	bs, err := l.store.ListByUser(ctx, who.UserID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bs, nil
}

// ListAll returns every booking, newest first.
func (l *Ledger) ListAll(ctx context.Context) ([]model.Booking, error) {
	bs, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bs, nil
}

// AttachPaymentSession records the checkout session started for a booking.
func (l *Ledger) AttachPaymentSession(ctx context.Context, bookingID, sessionID string) error {
	if err := l.store.SetPaymentSession(ctx, bookingID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "booking not found")
		}
		return fmt.Errorf("attach payment session: %w", err)
	}
	return nil
}

func (l *Ledger) load(ctx context.Context, id string) (*model.Booking, error) {
	b, err := l.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "booking not found")
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

// emit publishes a lifecycle event after the write is committed. The
// broker is detached from request cancellation and failures are only
// logged.
func (l *Ledger) emit(ctx context.Context, typ string, b *model.Booking) {
	if l.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.eventTimeout)
	defer cancel()
	ev := queue.BookingEvent{
		Type:        typ,
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		Seats:       b.Seats,
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		OccurredAt:  l.now().Format(time.RFC3339),
	}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn("publish booking event",
			zap.String("type", typ),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidRequest):
		return "rejected"
	default:
		return "error"
	}
}
