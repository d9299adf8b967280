// Package postgrest implements the storage interfaces over the Supabase
// PostgREST API. It is the default backend.
package postgrest

import (
	"context"
	"fmt"
	"time"

	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/internal/supabase"
)

const (
	tableTransactions = "jobboard_transactions"
	tableSettings     = "admin_settings"
	tableAdmins       = "admin_users"
	tableSessions     = "admin_sessions"

	rpcUpsertSettings   = "upsert_admin_settings"
	rpcTransactionStats = "transaction_stats"

	adminColumns = "id,email,password_hash,is_active,created_at,updated_at,last_login"
)

// Store implements storage.Store on top of a Supabase client.
type Store struct {
	client *supabase.Client
}

var _ storage.Store = (*Store)(nil)

// New wraps client.
func New(client *supabase.Client) *Store {
	return &Store{client: client}
}

// mapErr translates PostgREST errors into storage sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case supabase.IsNotFound(err):
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	case supabase.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	default:
		return err
	}
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// --- TransactionStore -------------------------------------------------------

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	q := s.client.From(tableTransactions).Select("*")
	if v, ok := domain.Active(filter.Status); ok {
		q.Eq("payment_status", v)
	}
	if v, ok := domain.Active(filter.Method); ok {
		q.Eq("payment_method", v)
	}
	if v, ok := domain.Active(filter.Account); ok {
		q.Eq("payment_account", v)
	}

	var groups []string
	if term := supabase.SanitizeTerm(filter.Search); term != "" {
		pattern := supabase.ContainsPattern(term)
		groups = append(groups, fmt.Sprintf("jb_id.ilike.%[1]s,email.ilike.%[1]s,full_name.ilike.%[1]s", pattern))
	}
	if c := filter.Cursor; c != nil {
		at := ts(c.CreatedAt)
		groups = append(groups, fmt.Sprintf("created_at.lt.%s,and(created_at.eq.%s,id.lt.%s)", at, at, c.ID))
	}
	switch len(groups) {
	case 1:
		q.Or(groups[0])
	case 2:
		q.And("or(" + groups[0] + "),or(" + groups[1] + ")")
	}

	q.Order("created_at", false).Order("id", false)
	if filter.Limit > 0 {
		q.Limit(filter.Limit)
	}

	var rows []domain.Transaction
	if err := q.Into(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

func (s *Store) GetTransactionByJBID(ctx context.Context, jbID string) (domain.Transaction, error) {
	var tx domain.Transaction
	err := s.client.From(tableTransactions).Select("*").Eq("jb_id", jbID).Single().Into(ctx, &tx)
	if err != nil {
		return domain.Transaction{}, mapErr(err)
	}
	return tx, nil
}

func (s *Store) TransactionStats(ctx context.Context) (domain.Stats, error) {
	resp, err := s.client.RPC(ctx, rpcTransactionStats, map[string]any{})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("transaction stats: %w", err)
	}
	stats := domain.NewStats()
	var raw domain.Stats
	if err := resp.JSON(&raw); err != nil {
		return domain.Stats{}, err
	}
	stats.Total, stats.Success, stats.Failed, stats.Pending = raw.Total, raw.Success, raw.Failed, raw.Pending
	stats.TotalRevenue = raw.TotalRevenue
	for k, v := range raw.ByMethod {
		stats.ByMethod[k] = v
	}
	for k, v := range raw.ByAccount {
		stats.ByAccount[k] = v
	}
	for k, v := range raw.ByPlan {
		stats.ByPlan[k] = v
	}
	return stats, nil
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) GetSettings(ctx context.Context, keys ...string) (map[string]string, error) {
	in := make([]any, len(keys))
	for i, k := range keys {
		in[i] = k
	}
	var rows []domain.Setting
	if err := s.client.From(tableSettings).Select("setting_key,setting_value").In("setting_key", in).Into(ctx, &rows); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// UpsertSettings calls upsert_admin_settings, which writes all pairs in one
// statement.
func (s *Store) UpsertSettings(ctx context.Context, values map[string]string) error {
	if _, err := s.client.RPC(ctx, rpcUpsertSettings, map[string]any{"settings": values}); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// --- AdminStore -------------------------------------------------------------

type adminRow struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func (r adminRow) user() domain.AdminUser {
	u := domain.AdminUser{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
	}
	if r.CreatedAt != nil {
		u.CreatedAt = *r.CreatedAt
	}
	return u
}

func firstAdmin(resp *supabase.Response) (domain.AdminUser, error) {
	var rows []adminRow
	if err := resp.JSON(&rows); err != nil {
		return domain.AdminUser{}, err
	}
	if len(rows) == 0 {
		return domain.AdminUser{}, storage.ErrNotFound
	}
	return rows[0].user(), nil
}

func (s *Store) CreateAdmin(ctx context.Context, user domain.AdminUser) (domain.AdminUser, error) {
	row := adminRow{Email: user.Email, PasswordHash: user.PasswordHash, IsActive: user.IsActive}
	resp, err := s.client.From(tableAdmins).ExecuteInsert(ctx, []adminRow{row})
	if err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return firstAdmin(resp)
}

func (s *Store) getAdminBy(ctx context.Context, column, value string) (domain.AdminUser, error) {
	var row adminRow
	err := s.client.From(tableAdmins).Select(adminColumns).Eq(column, value).Single().Into(ctx, &row)
	if err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return row.user(), nil
}

func (s *Store) GetAdmin(ctx context.Context, id string) (domain.AdminUser, error) {
	return s.getAdminBy(ctx, "id", id)
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (domain.AdminUser, error) {
	return s.getAdminBy(ctx, "email", email)
}

func (s *Store) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	var rows []adminRow
	if err := s.client.From(tableAdmins).Select(adminColumns).Order("created_at", false).Into(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	out := make([]domain.AdminUser, len(rows))
	for i, r := range rows {
		out[i] = r.user()
	}
	return out, nil
}

func (s *Store) UpdateAdmin(ctx context.Context, user domain.AdminUser) (domain.AdminUser, error) {
	patch := map[string]any{
		"password_hash": user.PasswordHash,
		"is_active":     user.IsActive,
		"updated_at":    ts(time.Now()),
	}
	if user.LastLogin != nil {
		patch["last_login"] = ts(*user.LastLogin)
	}
	resp, err := s.client.From(tableAdmins).Eq("id", user.ID).ExecuteUpdate(ctx, patch)
	if err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return firstAdmin(resp)
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	resp, err := s.client.From(tableAdmins).Eq("id", id).ExecuteDelete(ctx)
	if err != nil {
		return mapErr(err)
	}
	_, err = firstAdmin(resp)
	return err
}

func (s *Store) HasAdmins(ctx context.Context) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	if err := s.client.From(tableAdmins).Select("id").Limit(1).Into(ctx, &rows); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return len(rows) > 0, nil
}

// --- SessionStore -----------------------------------------------------------

type sessionRow struct {
	ID         string    `json:"id"`
	AdminID    string    `json:"admin_id"`
	Email      string    `json:"email"`
	TokenHash  string    `json:"token_hash"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	row := sessionRow(sess)
	if _, err := s.client.From(tableSessions).ExecuteInsert(ctx, []sessionRow{row}); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	var row sessionRow
	if err := s.client.From(tableSessions).Select("*").Eq("token_hash", tokenHash).Single().Into(ctx, &row); err != nil {
		return domain.Session{}, mapErr(err)
	}
	return domain.Session(row), nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.client.From(tableSessions).Eq("token_hash", tokenHash).ExecuteDelete(ctx)
	return mapErr(err)
}

func (s *Store) DeleteSessionsForAdmin(ctx context.Context, adminID string) error {
	_, err := s.client.From(tableSessions).Eq("admin_id", adminID).ExecuteDelete(ctx)
	return mapErr(err)
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	resp, err := s.client.From(tableSessions).Lt("expires_at", ts(now)).ExecuteDelete(ctx)
	if err != nil {
		return 0, mapErr(err)
	}
	var rows []sessionRow
	if err := resp.JSON(&rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
