package admin

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/applywizz/portal/internal/auth"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/storage"
)

const msgInvalidCredentials = "Invalid credentials"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail is the canonical form admin emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Admin     domain.AdminUser `json:"admin"`
}

// Login checks credentials and opens a session. Unknown, inactive and wrong
// password all fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = NormalizeEmail(email)
	log := s.log.WithContext(ctx).WithField("email", email)

	user, err := s.store.GetAdminByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		s.hasher.Reject(password)
		return LoginResult{}, svcerrors.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		log.WithError(err).Error("admin login lookup failed")
		return LoginResult{}, svcerrors.Internal("Login failed", err)
	}

	ok, rehash := s.hasher.Verify(user.PasswordHash, password)
	if !ok || !user.IsActive {
		return LoginResult{}, svcerrors.Unauthorized(msgInvalidCredentials)
	}

	if rehash {
		if hash, err := s.hasher.Hash(password); err == nil {
			user.PasswordHash = hash
			log.Info("admin password hash upgraded")
		}
	}
	now := s.now()
	user.LastLogin = &now
	if updated, err := s.store.UpdateAdmin(ctx, user); err != nil {
		log.WithError(err).Warn("record last login")
	} else {
		user = updated
	}

	token, sess, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return LoginResult{}, svcerrors.Internal("Login failed", err)
	}
	log.Info("admin logged in")
	return LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, Admin: user}, nil
}

func validateCredentials(email, password string) svcerrors.FieldErrors {
	errs := svcerrors.FieldErrors{}
	if !emailPattern.MatchString(email) {
		errs["email"] = "Please enter a valid email address"
	}
	if msg := checkPassword(password); msg != "" {
		errs["password"] = msg
	}
	return errs
}

func checkPassword(password string) string {
	switch {
	case len(password) < auth.MinPasswordLength:
		return "Password must be at least 6 characters"
	case len(password) > auth.MaxPasswordBytes:
		return "Password must be at most 72 bytes"
	}
	return ""
}

// CreateAdmin adds an active admin account.
func (s *Service) CreateAdmin(ctx context.Context, email, password string) (domain.AdminUser, error) {
	email = NormalizeEmail(email)
	if errs := validateCredentials(email, password); len(errs) > 0 {
		return domain.AdminUser{}, svcerrors.Validation(errs)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.AdminUser{}, svcerrors.Internal("Failed to create admin", err)
	}
	user, err := s.store.CreateAdmin(ctx, domain.AdminUser{Email: email, PasswordHash: hash, IsActive: true})
	if errors.Is(err, storage.ErrConflict) {
		return domain.AdminUser{}, svcerrors.Conflict("Admin user with this email already exists")
	}
	if err != nil {
		return domain.AdminUser{}, svcerrors.Upstream("Failed to create admin", err)
	}
	s.log.WithContext(ctx).WithField("email", email).Info("admin created")
	return user, nil
}

// ListAdmins returns every admin, newest first.
func (s *Service) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	users, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, svcerrors.Upstream("Failed to load admins", err)
	}
	return users, nil
}

// Admin returns one admin.
func (s *Service) Admin(ctx context.Context, id string) (domain.AdminUser, error) {
	user, err := s.store.GetAdmin(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.AdminUser{}, svcerrors.NotFound("Admin not found")
	}
	if err != nil {
		return domain.AdminUser{}, svcerrors.Upstream("Failed to load admin", err)
	}
	return user, nil
}

// DeleteAdmin removes id. Admins cannot delete themselves.
func (s *Service) DeleteAdmin(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return svcerrors.Forbidden("You cannot delete your own account")
	}
	err := s.store.DeleteAdmin(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return svcerrors.NotFound("Admin not found")
	}
	if err != nil {
		return svcerrors.Upstream("Failed to delete admin", err)
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("revoke sessions of deleted admin")
	}
	s.log.WithContext(ctx).WithField("target_id", id).Info("admin deleted")
	return nil
}

// SetAdminActive enables or disables id. Deactivation ends its sessions.
func (s *Service) SetAdminActive(ctx context.Context, actorID, id string, active bool) (domain.AdminUser, error) {
	if actorID == id && !active {
		return domain.AdminUser{}, svcerrors.Forbidden("You cannot deactivate your own account")
	}
	user, err := s.Admin(ctx, id)
	if err != nil {
		return domain.AdminUser{}, err
	}
	user.IsActive = active
	user, err = s.store.UpdateAdmin(ctx, user)
	if err != nil {
		return domain.AdminUser{}, svcerrors.Upstream("Failed to update admin", err)
	}
	if !active {
		if err := s.sessions.RevokeAll(ctx, id); err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("revoke sessions of deactivated admin")
		}
	}
	s.log.WithContext(ctx).WithFields(map[string]interface{}{"target_id": id, "active": active}).Info("admin status changed")
	return user, nil
}

// UpdateAdminPassword sets a new password for id.
func (s *Service) UpdateAdminPassword(ctx context.Context, id, password string) error {
	if msg := checkPassword(password); msg != "" {
		return svcerrors.Validation(svcerrors.FieldErrors{"password": msg})
	}
	user, err := s.Admin(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return svcerrors.Internal("Failed to update password", err)
	}
	user.PasswordHash = hash
	if _, err := s.store.UpdateAdmin(ctx, user); err != nil {
		return svcerrors.Upstream("Failed to update password", err)
	}
	s.log.WithContext(ctx).WithField("target_id", id).Info("admin password changed")
	return nil
}

// EnsureBootstrapAdmin creates the first admin when the table is empty. It
// reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}
	has, err := s.store.HasAdmins(ctx)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, email, password); err != nil {
		return false, err
	}
	return true, nil
}
