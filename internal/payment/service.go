package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Bookings is the slice of the ledger the payment flow needs.
type Bookings interface {
	Get(ctx context.Context, who model.Identity, id string) (*model.Booking, error)
	Confirm(ctx context.Context, id string) (*model.Booking, error)
	AttachPaymentSession(ctx context.Context, id, sessionID string) error
}

// Transactions persists payment_transactions rows.
type Transactions interface {
	Create(ctx context.Context, t *model.PaymentTransaction) error
	GetBySession(ctx context.Context, sessionID string) (*model.PaymentTransaction, error)
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
}

type Service struct {
	gateway  Gateway
	bookings Bookings
	txs      Transactions
	currency string
	log      *zap.Logger
	now      func() time.Time
}

func NewService(gw Gateway, bookings Bookings, txs Transactions, currency string, log *zap.Logger) *Service {
	log = logger.OrNop(log).Named("payment")
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		gateway:  gw,
		bookings: bookings,
		txs:      txs,
		currency: currency,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func checkOrigin(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", booking.Errorf(booking.ErrInvalidRequest, "origin_url must be an absolute http(s) URL")
	}
	return strings.TrimRight(origin, "/"), nil
}

// Checkout opens a provider session for the caller's pending booking and
// records it as a pending transaction.
func (s *Service) Checkout(ctx context.Context, who model.Identity, bookingID, originURL string) (Session, error) {
	origin, err := checkOrigin(originURL)
	if err != nil {
		return Session{}, err
	}
	b, err := s.bookings.Get(ctx, who, bookingID)
	if err != nil {
		return Session{}, err
	}
	if b.UserID != who.UserID {
		return Session{}, booking.Errorf(booking.ErrForbidden, "not authorized")
	}
	if b.Status != model.StatusPending {
		return Session{}, booking.Errorf(booking.ErrInvalidState, "booking already processed")
	}

	sess, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowID:     b.ShowID,
		Seats:      b.Seats,
		Amount:     b.TotalAmount,
		Currency:   s.currency,
		SuccessURL: origin + "/booking/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/booking/" + b.ShowID,
	})
	if err != nil {
		metrics.Payment("checkout_failed")
		return Session{}, fmt.Errorf("create checkout: %w", err)
	}

	now := s.now()
	if err := s.txs.Create(ctx, &model.PaymentTransaction{
		ID:            uuid.NewString(),
		SessionID:     sess.ID,
		BookingID:     b.ID,
		UserID:        b.UserID,
		Amount:        b.TotalAmount,
		Currency:      s.currency,
		Status:        model.TransactionPending,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		return Session{}, fmt.Errorf("record transaction: %w", err)
	}
	if err := s.bookings.AttachPaymentSession(ctx, b.ID, sess.ID); err != nil {
		return Session{}, err
	}
	metrics.Payment("checkout")
	s.log.Info("checkout started", zap.String("booking_id", b.ID), zap.String("session_id", sess.ID))
	return sess, nil
}

// Status returns the caller's transaction, asking the provider first when
// it is not yet paid.
func (s *Service) Status(ctx context.Context, who model.Identity, sessionID string) (*model.PaymentTransaction, error) {
	tx, err := s.transaction(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != who.UserID && !who.IsAdmin() {
		return nil, booking.Errorf(booking.ErrForbidden, "not authorized")
	}
	if tx.PaymentStatus == model.PaymentPaid {
		return tx, nil
	}
	paid, err := s.gateway.SessionPaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session status: %w", err)
	}
	if paid {
		if err := s.reconcile(ctx, tx, "status"); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// HandleWebhook verifies a provider notification and confirms the booking
// of a paid session. Unknown sessions are logged and acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	res, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.Payment("webhook_rejected")
		return err
	}
	metrics.Payment("webhook")
	if res.SessionID == "" || !res.Paid {
		return nil
	}
	tx, err := s.transaction(ctx, res.SessionID)
	if errors.Is(err, booking.ErrNotFound) {
		s.log.Warn("webhook for unknown session", zap.String("session_id", res.SessionID))
		return nil
	}
	if err != nil {
		return err
	}
	return s.reconcile(ctx, tx, "webhook")
}

func (s *Service) transaction(ctx context.Context, sessionID string) (*model.PaymentTransaction, error) {
	tx, err := s.txs.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, booking.Errorf(booking.ErrNotFound, "transaction not found")
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	return tx, nil
}

// reconcile marks tx paid and confirms its booking. Confirm runs even if
// the row was already paid; it is idempotent.
func (s *Service) reconcile(ctx context.Context, tx *model.PaymentTransaction, via string) error {
	changed, err := s.txs.MarkPaid(ctx, tx.SessionID)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if changed {
		metrics.Payment("paid")
		s.log.Info("payment completed",
			zap.String("session_id", tx.SessionID),
			zap.String("booking_id", tx.BookingID),
			zap.String("via", via),
		)
	}
	if _, err := s.bookings.Confirm(ctx, tx.BookingID); err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}
	tx.PaymentStatus = model.PaymentPaid
	tx.Status = model.TransactionComplete
	tx.UpdatedAt = s.now()
	return nil
}
