package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo stores bookings and their seats. booking_seats carries a
// unique (show_id, seat_number, active) key where active is 1 for live
// bookings and NULL once cancelled, so the database itself refuses a
// second live claim on a seat.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.user_id, b.show_id, b.total_amount, b.status, b.payment_session_id,
       b.created_at, b.updated_at, s.seat_number
FROM bookings b
LEFT JOIN booking_seats s ON s.booking_id = b.id`

// queryBookings runs bookingSelect with the given tail and folds seat
// rows into their bookings, preserving row order.
func (r *BookingRepo) queryBookings(ctx context.Context, tail string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, bookingSelect+" "+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	index := map[string]int{}
	for rows.Next() {
		var (
			b       model.Booking
			status  string
			session sql.NullString
			seat    sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.ShowID, &b.TotalAmount, &status, &session,
			&b.CreatedAt, &b.UpdatedAt, &seat); err != nil {
			return nil, err
		}
		i, seen := index[b.ID]
		if !seen {
			b.Status = model.BookingStatus(status)
			b.Seats = []string{}
			if session.Valid {
				sid := session.String
				b.PaymentSessionID = &sid
			}
			i = len(out)
			index[b.ID] = i
			out = append(out, b)
		}
		if seat.Valid {
			out[i].Seats = append(out[i].Seats, seat.String)
		}
	}
	return out, rows.Err()
}

// ActiveByShow returns pending and confirmed bookings of a show.
func (r *BookingRepo) ActiveByShow(ctx context.Context, showID string) ([]model.Booking, error) {
	return r.queryBookings(ctx,
		`WHERE b.show_id = ? AND b.status IN ('pending', 'confirmed') ORDER BY b.created_at, b.id, s.position`, showID)
}

// Create inserts the booking and one booking_seats row per seat in a
// single transaction. A duplicate live seat yields *SeatTakenError.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO bookings (id, user_id, show_id, total_amount, status, payment_session_id, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, b.ID, b.UserID, b.ShowID, b.TotalAmount, string(b.Status),
		b.PaymentSessionID, b.CreatedAt, b.UpdatedAt); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO booking_seats (booking_id, show_id, seat_number, position, active) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var active any = 1
	if !b.Status.Holds() {
		active = nil
	}
	for pos, seat := range b.Seats {
		if _, err := stmt.ExecContext(ctx, b.ID, b.ShowID, seat, pos, active); err != nil {
			if mysqlCode(err) == errDupEntry {
				return &SeatTakenError{ShowID: b.ShowID, Seat: seat}
			}
			return err
		}
	}
	return tx.Commit()
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	bs, err := r.queryBookings(ctx, `WHERE b.id = ? ORDER BY s.position`, id)
	if err != nil {
		return nil, err
	}
	if len(bs) == 0 {
		return nil, ErrNotFound
	}
	return &bs[0], nil
}

// Transition moves a booking from one status to another only if it is
// still in from. Cancelling also frees the seats' unique slots.
func (r *BookingRepo) Transition(ctx context.Context, id string, from, to model.BookingStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrStaleStatus
	}
	if !to.Holds() {
		if _, err := tx.ExecContext(ctx, `UPDATE booking_seats SET active = NULL WHERE booking_id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.queryBookings(ctx, `WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id, s.position`, userID)
}

// ListAll returns every booking, newest first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	return r.queryBookings(ctx, `ORDER BY b.created_at DESC, b.id, s.position`)
}

func (r *BookingRepo) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET payment_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionID, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary counts bookings and sums revenue from confirmed ones.
func (r *BookingRepo) Summary(ctx context.Context) (model.BookingSummary, error) {
	const q = `SELECT COUNT(*),
	                  COALESCE(SUM(status = 'confirmed'), 0),
	                  COALESCE(SUM(CASE WHEN status = 'confirmed' THEN total_amount END), 0)
	           FROM bookings`
	var s model.BookingSummary
	err := r.db.QueryRowContext(ctx, q).Scan(&s.Total, &s.Confirmed, &s.TotalRevenue)
	return s, err
}
