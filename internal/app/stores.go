package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/internal/storage/memory"
	"github.com/applywizz/portal/internal/storage/postgres"
	"github.com/applywizz/portal/internal/storage/postgrest"
	redisstore "github.com/applywizz/portal/internal/storage/redis"
	"github.com/applywizz/portal/internal/supabase"
	"github.com/applywizz/portal/pkg/logger"
)

// compositeStore serves sessions from a different backend than the rest.
type compositeStore struct {
	storage.TransactionStore
	storage.SettingsStore
	storage.AdminStore
	storage.SessionStore
}

var _ storage.Store = compositeStore{}

// buildStore opens the configured backend. The returned closers release
// database and redis connections.
func buildStore(ctx context.Context, cfg *config.Config, sb *supabase.Client, log *logger.Logger) (storage.Store, []io.Closer, error) {
	var (
		store   storage.Store
		closers []io.Closer
	)

	switch cfg.Store {
	case config.StorePostgREST:
		store = postgrest.New(sb)
	case config.StorePostgres:
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db)
		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			log.Info("database migrations applied")
		}
		store = postgres.New(db)
	case config.StoreMemory:
		log.Warn("PORTAL_STORE=memory; data is lost on restart")
		store = memory.New()
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			closeAll(closers, log)
			return nil, nil, err
		}
		closers = append(closers, client)
		store = compositeStore{
			TransactionStore: store,
			SettingsStore:    store,
			AdminStore:       store,
			SessionStore:     redisstore.NewSessionStore(client, ""),
		}
		log.WithField("addr", cfg.Redis.Addr).Info("admin sessions stored in redis")
	}
	return store, closers, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func closeAll(closers []io.Closer, log *logger.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.WithError(err).Warn("close connection")
		}
	}
}
