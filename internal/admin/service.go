// Package admin is the service layer behind the admin dashboard: payment
// gateway and pricing settings, transaction reporting and admin accounts.
package admin

import (
	"context"
	"time"

	"github.com/applywizz/portal/internal/auth"
	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/pkg/logger"
)

// Store is the persistence the admin service needs.
type Store interface {
	storage.TransactionStore
	storage.SettingsStore
	storage.AdminStore
}

// Sessions issues and revokes admin sessions. *auth.SessionManager
// implements it.
type Sessions interface {
	Issue(ctx context.Context, admin domain.AdminUser) (string, domain.Session, error)
	RevokeAll(ctx context.Context, adminID string) error
}

// Service implements the admin operations.
type Service struct {
	store    Store
	sessions Sessions
	hasher   *auth.Hasher
	catalog  *config.Catalog
	log      *logger.Logger
	now      func() time.Time
}

// New constructs the admin service.
func New(store Store, sessions Sessions, hasher *auth.Hasher, cat *config.Catalog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admin")
	}
	if cat == nil {
		cat = config.DefaultCatalog()
	}
	if hasher == nil {
		hasher = auth.NewHasher(0)
	}
	return &Service{
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		catalog:  cat,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Catalog returns the catalog the service validates against.
func (s *Service) Catalog() *config.Catalog {
	return s.catalog
}
