// Package middleware provides the HTTP middleware wrapped around the portal
// router.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/applywizz/portal/internal/auth"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	internalhttputil "github.com/applywizz/portal/internal/httputil"
	"github.com/applywizz/portal/pkg/logger"
)

// Authenticator validates a bearer token against the server-side session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Session, error)
}

// AuthMiddleware requires a valid admin session.
type AuthMiddleware struct {
	sessions  Authenticator
	logger    *logger.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(sessions Authenticator, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &AuthMiddleware{
		sessions:  sessions,
		logger:    log,
		skipPaths: skip,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := BearerToken(r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		sess, err := m.sessions.Authenticate(r.Context(), token)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := auth.WithSession(r.Context(), sess)
		m.logger.WithContext(ctx).WithField("session_id", sess.ID).Debug("Authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", svcerrors.Unauthorized("Missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", svcerrors.Unauthorized("Invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := svcerrors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = svcerrors.Internal("Authentication failed", err)
	}

	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.LogSecurityEvent(r.Context(), "auth_failed", map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
		"reason": serviceErr.Message,
	})
}

// RequireAdmin ensures an authenticated session is present in context.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			internalhttputil.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
