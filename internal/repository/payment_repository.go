package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// PaymentRepo stores one payment_transactions row per checkout session.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func (r *PaymentRepo) Create(ctx context.Context, t *model.PaymentTransaction) error {
	const q = `INSERT INTO payment_transactions
	           (id, session_id, booking_id, user_id, amount, currency, status, payment_status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.SessionID, t.BookingID, t.UserID, t.Amount, t.Currency,
		t.Status, t.PaymentStatus, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PaymentRepo) GetBySession(ctx context.Context, sessionID string) (*model.PaymentTransaction, error) {
	const q = `SELECT id, session_id, booking_id, user_id, amount, currency, status, payment_status, created_at, updated_at
	           FROM payment_transactions WHERE session_id = ?`
	var t model.PaymentTransaction
	err := r.db.QueryRowContext(ctx, q, sessionID).Scan(&t.ID, &t.SessionID, &t.BookingID, &t.UserID,
		&t.Amount, &t.Currency, &t.Status, &t.PaymentStatus, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkPaid flips the session to paid/complete if it is not already. The
// bool reports whether this call made the change, so exactly one caller
// goes on to confirm the booking.
func (r *PaymentRepo) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_transactions SET payment_status = ?, status = ?, updated_at = ?
		 WHERE session_id = ? AND payment_status <> ?`,
		model.PaymentPaid, model.TransactionComplete, time.Now().UTC(), sessionID, model.PaymentPaid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.GetBySession(ctx, sessionID); err != nil {
		return false, err
	}
	return false, nil
}
