package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// UserStore keeps accounts indexed by id and email.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]model.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]model.User), byEmail: make(map[string]string)}
}

func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := s.byEmail[email]; taken {
		return repository.ErrEmailExists
	}
	u.Email = email
	s.users[u.ID] = *u
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// PaymentStore keeps payment transactions keyed by checkout session.
type PaymentStore struct {
	mu  sync.Mutex
	txs map[string]model.PaymentTransaction
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{txs: make(map[string]model.PaymentTransaction)}
}

func (s *PaymentStore) Create(ctx context.Context, tx *model.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.SessionID] = *tx
	return nil
}

func (s *PaymentStore) GetBySession(ctx context.Context, sessionID string) (*model.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

// MarkPaid flips a transaction to paid/complete. It reports whether this
// call made the change.
func (s *PaymentStore) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[sessionID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if tx.PaymentStatus == model.PaymentPaid {
		return false, nil
	}
	tx.PaymentStatus = model.PaymentPaid
	tx.Status = model.TransactionComplete
	tx.UpdatedAt = time.Now().UTC()
	s.txs[sessionID] = tx
	return true, nil
}
