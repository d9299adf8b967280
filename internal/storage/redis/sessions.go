// Package redis keeps admin sessions in Redis. Keys expire with the session,
// so no purge job is needed.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
)

const defaultPrefix = "portal:"

// SessionStore implements storage.SessionStore.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

var _ storage.SessionStore = (*SessionStore)(nil)

// NewSessionStore wraps client. An empty prefix selects "portal:".
func NewSessionStore(client goredis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *SessionStore) sessionKey(tokenHash string) string {
	return s.prefix + "session:" + tokenHash
}

func (s *SessionStore) adminKey(adminID string) string {
	return s.prefix + "admin_sessions:" + adminID
}

func (s *SessionStore) CreateSession(ctx context.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	payload, err := json.Marshal(record(sess))
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(sess.TokenHash), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return storage.ErrConflict
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.adminKey(sess.AdminID), sess.TokenHash)
	pipe.ExpireAt(ctx, s.adminKey(sess.AdminID), sess.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return rec.session(), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, tokenHash string) error {
	sess, err := s.GetSessionByTokenHash(ctx, tokenHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(tokenHash))
	pipe.SRem(ctx, s.adminKey(sess.AdminID), tokenHash)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) DeleteSessionsForAdmin(ctx context.Context, adminID string) error {
	hashes, err := s.client.SMembers(ctx, s.adminKey(adminID)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("list admin sessions: %w", err)
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.sessionKey(h))
	}
	keys = append(keys, s.adminKey(adminID))
	return s.client.Del(ctx, keys...).Err()
}

// DeleteExpiredSessions is a no-op: Redis expires session keys itself.
func (s *SessionStore) DeleteExpiredSessions(context.Context, time.Time) (int, error) {
	return 0, nil
}

// sessionRecord is the stored form. domain.Session hides the token hash
// from JSON.
type sessionRecord struct {
	ID         string    `json:"id"`
	AdminID    string    `json:"admin_id"`
	Email      string    `json:"email"`
	TokenHash  string    `json:"token_hash"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func record(s domain.Session) sessionRecord { return sessionRecord(s) }

func (r sessionRecord) session() domain.Session { return domain.Session(r) }
