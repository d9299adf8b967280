package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/pkg/logger"
)

const issuer = "applywizz-portal"

// Claims are carried by admin session tokens.
type Claims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// AdminLookup is the slice of the admin store the session manager needs.
type AdminLookup interface {
	GetAdmin(ctx context.Context, id string) (domain.AdminUser, error)
}

// SessionManager issues signed admin tokens and validates them against the
// server-side session table on every request.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	store  storage.SessionStore
	admins AdminLookup
	log    *logger.Logger
	now    func() time.Time
}

// NewSessionManager builds a manager. ttl <= 0 selects 12 hours.
func NewSessionManager(secret string, ttl time.Duration, store storage.SessionStore, admins AdminLookup, log *logger.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		admins: admins,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HashToken returns the hex sha256 of a token, the form sessions are stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue signs a token for admin and records its session.
func (m *SessionManager) Issue(ctx context.Context, admin domain.AdminUser) (string, domain.Session, error) {
	now := m.now()
	sess := domain.Session{
		ID:         uuid.NewString(),
		AdminID:    admin.ID,
		Email:      admin.Email,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		LastSeenAt: now,
	}

	claims := &Claims{
		Email:     admin.Email,
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("sign session token: %w", err)
	}

	sess.TokenHash = HashToken(token)
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return token, sess, nil
}

func (m *SessionManager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Authenticate checks the token signature and expiry, then requires a live
// session row whose admin still exists and is active.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, svcerrors.Unauthorized("missing authorization")
	}
	claims, err := m.parse(token)
	if err != nil {
		return domain.Session{}, svcerrors.InvalidToken(err)
	}

	sess, err := m.store.GetSessionByTokenHash(ctx, HashToken(token))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Session{}, svcerrors.Unauthorized("session expired")
	}
	if err != nil {
		return domain.Session{}, svcerrors.Internal("load session", err)
	}
	if sess.Expired(m.now()) || sess.ID != claims.SessionID || sess.AdminID != claims.Subject {
		return domain.Session{}, svcerrors.Unauthorized("session expired")
	}

	admin, err := m.admins.GetAdmin(ctx, sess.AdminID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !admin.IsActive) {
		_ = m.store.DeleteSession(ctx, sess.TokenHash)
		return domain.Session{}, svcerrors.Unauthorized("account disabled")
	}
	if err != nil {
		return domain.Session{}, svcerrors.Internal("load admin", err)
	}
	return sess, nil
}

// Revoke ends the session behind token. Unknown tokens are ignored.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, HashToken(token))
}

// RevokeAll ends every session belonging to adminID.
func (m *SessionManager) RevokeAll(ctx context.Context, adminID string) error {
	return m.store.DeleteSessionsForAdmin(ctx, adminID)
}

// PurgeExpired deletes sessions past their expiry.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpiredSessions(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.log.WithField("count", n).Info("purged expired admin sessions")
	}
	return n, nil
}

type sessionKey struct{}

// WithSession stores an authenticated session in ctx.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return logger.WithAdminID(context.WithValue(ctx, sessionKey{}, sess), sess.AdminID)
}

// FromContext returns the authenticated session, if any.
func FromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domain.Session)
	return sess, ok
}
