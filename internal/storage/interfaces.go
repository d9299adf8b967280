// Package storage declares the persistence contracts shared by the memory,
// PostgREST and Postgres backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/applywizz/portal/internal/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("storage: conflict")
)

// TransactionStore reads job-board transactions. Rows are written by the
// payment webhook, never by the portal.
type TransactionStore interface {
	// ListTransactions returns rows matching filter in (created_at desc,
	// id desc) order, starting after filter.Cursor. Limit 0 means no limit.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransactionByJBID(ctx context.Context, jbID string) (domain.Transaction, error)
	TransactionStats(ctx context.Context) (domain.Stats, error)
}

// SettingsStore persists admin_settings.
type SettingsStore interface {
	// GetSettings returns the values present for keys. Missing keys are absent.
	GetSettings(ctx context.Context, keys ...string) (map[string]string, error)
	// UpsertSettings writes every pair in one atomic operation.
	UpsertSettings(ctx context.Context, values map[string]string) error
}

// AdminStore persists admin_users.
type AdminStore interface {
	CreateAdmin(ctx context.Context, user domain.AdminUser) (domain.AdminUser, error)
	GetAdmin(ctx context.Context, id string) (domain.AdminUser, error)
	GetAdminByEmail(ctx context.Context, email string) (domain.AdminUser, error)
	ListAdmins(ctx context.Context) ([]domain.AdminUser, error)
	// UpdateAdmin writes password_hash, is_active, last_login and updated_at.
	UpdateAdmin(ctx context.Context, user domain.AdminUser) (domain.AdminUser, error)
	DeleteAdmin(ctx context.Context, id string) error
	HasAdmins(ctx context.Context) (bool, error)
}

// SessionStore persists admin sessions keyed by the hash of their token.
type SessionStore interface {
	CreateSession(ctx context.Context, sess domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteSessionsForAdmin(ctx context.Context, adminID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// Store bundles every store the portal needs.
type Store interface {
	TransactionStore
	SettingsStore
	AdminStore
	SessionStore
}
