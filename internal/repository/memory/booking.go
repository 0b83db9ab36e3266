package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// BookingStore mirrors the MySQL booking tables, including the unique
// (show, seat) index over bookings that still hold their seats.
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]model.Booking
	seq      []string // insertion order, oldest first
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[string]model.Booking)}
}

func copyBooking(b model.Booking) model.Booking {
	seats := make([]string, len(b.Seats))
	copy(seats, b.Seats)
	b.Seats = seats
	if b.PaymentSessionID != nil {
		sid := *b.PaymentSessionID
		b.PaymentSessionID = &sid
	}
	return b
}

func (s *BookingStore) ActiveByShow(ctx context.Context, showID string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Booking
	for _, id := range s.seq {
		b := s.bookings[id]
		if b.ShowID == showID && b.Status.Holds() {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

func (s *BookingStore) Create(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Status.Holds() {
		for _, id := range s.seq {
			other := s.bookings[id]
			if other.ShowID != b.ShowID || !other.Status.Holds() {
				continue
			}
			for _, taken := range other.Seats {
				for _, want := range b.Seats {
					if taken == want {
						return &repository.SeatTakenError{ShowID: b.ShowID, Seat: want}
					}
				}
			}
		}
	}
	s.bookings[b.ID] = copyBooking(*b)
	s.seq = append(s.seq, b.ID)
	return nil
}

func (s *BookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyBooking(b)
	return &cp, nil
}

func (s *BookingStore) Transition(ctx context.Context, id string, from, to model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Status != from {
		return repository.ErrStaleStatus
	}
	b.Status = to
	s.bookings[id] = b
	return nil
}

func (s *BookingStore) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.PaymentSessionID = &sessionID
	s.bookings[id] = b
	return nil
}

func (s *BookingStore) newestFirst(keep func(model.Booking) bool) []model.Booking {
	out := make([]model.Booking, 0)
	for i := len(s.seq) - 1; i >= 0; i-- {
		b := s.bookings[s.seq[i]]
		if keep(b) {
			out = append(out, copyBooking(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *BookingStore) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (s *BookingStore) ListAll(ctx context.Context) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(func(model.Booking) bool { return true }), nil
}

func (s *BookingStore) Summary(ctx context.Context) (model.BookingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := model.BookingSummary{TotalRevenue: decimal.Zero}
	for _, b := range s.bookings {
		sum.Total++
		if b.Status == model.StatusConfirmed {
			sum.Confirmed++
			sum.TotalRevenue = sum.TotalRevenue.Add(b.TotalAmount)
		}
	}
	return sum, nil
}
