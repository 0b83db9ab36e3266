package booking_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/realtime"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/repository/memory"
	"github.com/iliyamo/cinema-booking/internal/seatmap"
)

type published struct {
	showID string
	ev     realtime.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(showID string, ev realtime.Event) {
	n.mu.Lock()
	n.events = append(n.events, published{showID, ev})
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (r *recordingEvents) Publish(ctx context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	ledger   *booking.Ledger
	store    *memory.BookingStore
	notifier *recordingNotifier
	events   *recordingEvents
	showID   string
}

var (
	u1 = model.Identity{UserID: "u1", Role: model.RoleUser}
	u2 = model.Identity{UserID: "u2", Role: model.RoleUser}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	theaters := memory.NewTheaterStore()
	shows := memory.NewShowStore()
	require.NoError(t, theaters.Create(ctx, &model.Theater{
		ID:   "t1",
		Name: "Grand",
		Screens: []model.Screen{{
			ScreenNumber: 1,
			TotalSeats:   6,
			Layout:       model.SeatLayout{Rows: []string{"A", "B"}, SeatsPerRow: 3},
		}},
	}))
	require.NoError(t, shows.Create(ctx, &model.Show{
		ID: "s1", MovieID: "m1", TheaterID: "t1", ScreenNumber: 1,
		Date: "2025-01-15", StartTime: "14:00", EndTime: "16:30",
		Price: decimal.RequireFromString("12.50"),
	}))
	require.NoError(t, shows.Create(ctx, &model.Show{
		ID: "orphan", TheaterID: "t1", ScreenNumber: 9, Price: decimal.NewFromInt(5),
	}))
	// stored without going through admin validation
	require.NoError(t, theaters.Create(ctx, &model.Theater{
		ID: "t2",
		Screens: []model.Screen{{
			ScreenNumber: 1,
			Layout:       model.SeatLayout{Rows: []string{"a", "b"}, SeatsPerRow: 3},
		}},
	}))
	require.NoError(t, shows.Create(ctx, &model.Show{
		ID: "lower", TheaterID: "t2", ScreenNumber: 1, Price: decimal.NewFromInt(5),
	}))

	f := &fixture{
		store:    memory.NewBookingStore(),
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
		showID:   "s1",
	}
	f.ledger = booking.NewLedger(booking.Deps{
		Shows:    shows,
		Theaters: theaters,
		Store:    f.store,
		Notifier: f.notifier,
		Events:   f.events,
	})
	return f
}

func TestCreate_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b1, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, b1.Status)
	assert.True(t, decimal.RequireFromString("25").Equal(b1.TotalAmount), b1.TotalAmount.String())

	_, err = f.ledger.Create(ctx, u2, f.showID, []string{"A2", "A3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrConflict)
	var conflict *booking.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "A2", conflict.Seat)

	_, grid, err := f.ledger.SeatMap(ctx, f.showID)
	require.NoError(t, err)
	assert.Equal(t, seatmap.StatusBooked, grid[0][0].Status)
	assert.Equal(t, seatmap.StatusBooked, grid[0][1].Status)
	assert.Equal(t, seatmap.StatusAvailable, grid[0][2].Status)

	cancelled, err := f.ledger.Cancel(ctx, u1, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	_, grid, err = f.ledger.SeatMap(ctx, f.showID)
	require.NoError(t, err)
	for _, row := range grid {
		for _, s := range row {
			assert.Equal(t, seatmap.StatusAvailable, s.Status, s.Number)
		}
	}

	evs := f.notifier.all()
	require.Len(t, evs, 2)
	assert.Equal(t, realtime.SeatUpdate([]string{"A1", "A2"}, seatmap.StatusBooked), evs[0].ev)
	assert.Equal(t, realtime.SeatUpdate([]string{"A1", "A2"}, seatmap.StatusAvailable), evs[1].ev)
	assert.Equal(t, f.showID, evs[1].showID)

	assert.Equal(t, []string{queue.EventBookingCreated, queue.EventBookingCancelled}, f.events.types())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Create(ctx, u1, "missing", []string{"A1"})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.ledger.Create(ctx, u1, "orphan", []string{"A1"})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.ledger.Create(ctx, u1, "missing", nil)
	assert.ErrorIs(t, err, booking.ErrNotFound, "show lookup comes before seat checks")

	_, err = f.ledger.Create(ctx, u1, "missing", []string{"A1", "A1"})
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.ledger.Create(ctx, u1, f.showID, nil)
	assert.ErrorIs(t, err, booking.ErrInvalidRequest)

	_, err = f.ledger.Create(ctx, u1, f.showID, []string{"A1", "a1"})
	assert.ErrorIs(t, err, booking.ErrInvalidRequest)

	_, err = f.ledger.Create(ctx, u1, f.showID, []string{"C1"})
	assert.ErrorIs(t, err, booking.ErrInvalidRequest)

	assert.Empty(t, f.notifier.all())
	assert.Empty(t, f.events.types())
}

func TestNonCanonicalLayoutIsNeverOffered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, grid, err := f.ledger.SeatMap(ctx, "lower")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.Nil(t, grid)

	for _, seat := range []string{"a1", "A1"} {
		_, err = f.ledger.Create(ctx, u1, "lower", []string{seat})
		assert.ErrorIs(t, err, booking.ErrNotFound, seat)
	}
	assert.Empty(t, f.notifier.all())
}

func TestCreate_NormalizesSeatIDs(t *testing.T) {
	f := newFixture(t)
	b, err := f.ledger.Create(context.Background(), u1, f.showID, []string{" b2 ", "A3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "A3"}, b.Seats)
}

func TestCreate_ConcurrentOverlapHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 32
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := model.Identity{UserID: "user", Role: model.RoleUser}
			seats := []string{"B1", "B2"}
			if i%2 == 1 {
				seats = []string{"B2", "B3"}
			}
			_, err := f.ledger.Create(ctx, who, f.showID, seats)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, booking.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())

	active, err := f.store.ActiveByShow(ctx, f.showID)
	require.NoError(t, err)
	seen := map[string]int{}
	for _, b := range active {
		for _, s := range b.Seats {
			seen[s]++
		}
	}
	for seat, count := range seen {
		assert.Equal(t, 1, count, seat)
	}
}

func TestCancel_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1"})
	require.NoError(t, err)

	_, err = f.ledger.Cancel(ctx, u1, "nope")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.ledger.Cancel(ctx, u2, b.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = f.ledger.Cancel(ctx, u1, b.ID)
	require.NoError(t, err)

	before := len(f.notifier.all())
	_, err = f.ledger.Cancel(ctx, u1, b.ID)
	assert.ErrorIs(t, err, booking.ErrInvalidState)
	assert.Len(t, f.notifier.all(), before)

	got, err := f.store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
}

func TestConfirm_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1"})
	require.NoError(t, err)
	broadcasts := len(f.notifier.all())

	for i := 0; i < 3; i++ {
		got, err := f.ledger.Confirm(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, got.Status)
	}

	assert.Len(t, f.notifier.all(), broadcasts, "confirm must not broadcast")
	assert.Equal(t, []string{queue.EventBookingCreated, queue.EventBookingConfirmed}, f.events.types())

	// confirmed bookings still occupy their seats and may be cancelled
	_, err = f.ledger.Create(ctx, u2, f.showID, []string{"A1"})
	assert.ErrorIs(t, err, booking.ErrConflict)
	_, err = f.ledger.Cancel(ctx, u1, b.ID)
	require.NoError(t, err)
}

func TestConfirm_CancelledIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1"})
	require.NoError(t, err)
	_, err = f.ledger.Cancel(ctx, u1, b.ID)
	require.NoError(t, err)

	got, err := f.ledger.Confirm(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.ledger.Confirm(ctx, "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestGet_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1"})
	require.NoError(t, err)

	_, err = f.ledger.Get(ctx, u1, b.ID)
	assert.NoError(t, err)
	_, err = f.ledger.Get(ctx, model.Identity{UserID: "boss", Role: model.RoleAdmin}, b.ID)
	assert.NoError(t, err)
	_, err = f.ledger.Get(ctx, u2, b.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestListMine_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1"})
	require.NoError(t, err)
	second, err := f.ledger.Create(ctx, u1, f.showID, []string{"A2"})
	require.NoError(t, err)
	_, err = f.ledger.Create(ctx, u2, f.showID, []string{"A3"})
	require.NoError(t, err)

	mine, err := f.ledger.ListMine(ctx, u1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
}

func TestAttachPaymentSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.ledger.Create(ctx, u1, f.showID, []string{"A1"})
	require.NoError(t, err)

	require.NoError(t, f.ledger.AttachPaymentSession(ctx, b.ID, "cs_test_1"))
	got, err := f.store.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PaymentSessionID)
	assert.Equal(t, "cs_test_1", *got.PaymentSessionID)

	assert.ErrorIs(t, f.ledger.AttachPaymentSession(ctx, "missing", "x"), booking.ErrNotFound)
}

func TestEventFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	b, err := f.ledger.Create(context.Background(), u1, f.showID, []string{"A1"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
}

// racyStore reports seats as free so the storage constraint is what
// rejects the second insert.
type racyStore struct{ *memory.BookingStore }

func (racyStore) ActiveByShow(context.Context, string) ([]model.Booking, error) { return nil, nil }

func TestCreate_StorageConstraintMapsToConflict(t *testing.T) {
	ctx := context.Background()
	theaters := memory.NewTheaterStore()
	shows := memory.NewShowStore()
	require.NoError(t, theaters.Create(ctx, &model.Theater{ID: "t", Screens: []model.Screen{{
		ScreenNumber: 1, Layout: model.SeatLayout{Rows: []string{"A"}, SeatsPerRow: 2},
	}}}))
	require.NoError(t, shows.Create(ctx, &model.Show{ID: "s", TheaterID: "t", ScreenNumber: 1, Price: decimal.NewFromInt(1)}))

	l := booking.NewLedger(booking.Deps{
		Shows: shows, Theaters: theaters,
		Store:    racyStore{memory.NewBookingStore()},
		Notifier: &recordingNotifier{},
	})
	_, err := l.Create(ctx, u1, "s", []string{"A1"})
	require.NoError(t, err)
	_, err = l.Create(ctx, u2, "s", []string{"A2", "A1"})
	var conflict *booking.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A1", conflict.Seat)
}

func TestErrorsKeepRepositoryDetailOut(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Get(context.Background(), u1, "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}
