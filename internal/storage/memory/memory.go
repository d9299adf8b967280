// Package memory is an in-process implementation of the storage interfaces
// used by tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
)

// Store is a thread-safe in-memory store.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]domain.Transaction
	settings     map[string]domain.Setting
	admins       map[string]domain.AdminUser
	sessions     map[string]domain.Session
	now          func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		transactions: make(map[string]domain.Transaction),
		settings:     make(map[string]domain.Setting),
		admins:       make(map[string]domain.AdminUser),
		sessions:     make(map[string]domain.Session),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// PutTransaction inserts or replaces a transaction, keyed by JB id. It stands
// in for the payment webhook.
func (s *Store) PutTransaction(tx domain.Transaction) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.transactions[tx.JBID] = tx
	return tx
}

// --- TransactionStore -------------------------------------------------------

func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, byStatus := domain.Active(filter.Status)
	method, byMethod := domain.Active(filter.Method)
	account, byAccount := domain.Active(filter.Account)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if byStatus && tx.PaymentStatus != status {
			continue
		}
		if byMethod && tx.PaymentMethod != method {
			continue
		}
		if byAccount && tx.PaymentAccount != account {
			continue
		}
		if search != "" && !matches(tx, search) {
			continue
		}
		if filter.Cursor != nil && !filter.Cursor.After(tx) {
			continue
		}
		out = append(out, tx)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(tx domain.Transaction, term string) bool {
	for _, field := range []string{tx.JBID, tx.Email, tx.FullName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *Store) GetTransactionByJBID(_ context.Context, jbID string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[jbID]
	if !ok {
		return domain.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) TransactionStats(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		txs = append(txs, tx)
	}
	return domain.ComputeStats(txs), nil
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) GetSettings(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.settings[k]; ok {
			out[k] = v.Value
		}
	}
	return out, nil
}

func (s *Store) UpsertSettings(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range values {
		s.settings[k] = domain.Setting{Key: k, Value: v, UpdatedAt: now}
	}
	return nil
}

// --- AdminStore -------------------------------------------------------------

func (s *Store) CreateAdmin(_ context.Context, user domain.AdminUser) (domain.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.admins {
		if existing.Email == user.Email {
			return domain.AdminUser{}, storage.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.now()
	s.admins[user.ID] = user
	return user, nil
}

func (s *Store) GetAdmin(_ context.Context, id string) (domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.admins[id]
	if !ok {
		return domain.AdminUser{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) GetAdminByEmail(_ context.Context, email string) (domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.admins {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.AdminUser{}, storage.ErrNotFound
}

func (s *Store) ListAdmins(_ context.Context) ([]domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AdminUser, 0, len(s.admins))
	for _, user := range s.admins {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateAdmin(_ context.Context, user domain.AdminUser) (domain.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.admins[user.ID]
	if !ok {
		return domain.AdminUser{}, storage.ErrNotFound
	}
	now := s.now()
	existing.PasswordHash = user.PasswordHash
	existing.IsActive = user.IsActive
	existing.LastLogin = user.LastLogin
	existing.UpdatedAt = &now
	s.admins[user.ID] = existing
	return existing, nil
}

func (s *Store) DeleteAdmin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.admins, id)
	for hash, sess := range s.sessions {
		if sess.AdminID == id {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func (s *Store) HasAdmins(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins) > 0, nil
}

// --- SessionStore -----------------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.TokenHash]; ok {
		return storage.ErrConflict
	}
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, tokenHash string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return domain.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteSessionsForAdmin(_ context.Context, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, sess := range s.sessions {
		if sess.AdminID == adminID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for hash, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}
