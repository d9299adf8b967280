// Package postgres implements the storage interfaces directly against
// PostgreSQL using sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", storage.ErrConflict, pqErr.Message)
	}
	return err
}

const transactionColumns = `id, jb_id, full_name, email, mobile_number, country_code, gender,
	location, country, plan_id, amount, payment_method, payment_account,
	payment_status, plan_started, created_at`

type transactionRow struct {
	ID             string       `db:"id"`
	JBID           string       `db:"jb_id"`
	FullName       string       `db:"full_name"`
	Email          string       `db:"email"`
	MobileNumber   string       `db:"mobile_number"`
	CountryCode    string       `db:"country_code"`
	Gender         string       `db:"gender"`
	Location       string       `db:"location"`
	Country        string       `db:"country"`
	PlanID         string       `db:"plan_id"`
	Amount         float64      `db:"amount"`
	PaymentMethod  string       `db:"payment_method"`
	PaymentAccount string       `db:"payment_account"`
	PaymentStatus  string       `db:"payment_status"`
	PlanStarted    sql.NullTime `db:"plan_started"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r transactionRow) transaction() domain.Transaction {
	tx := domain.Transaction{
		ID:             r.ID,
		JBID:           r.JBID,
		FullName:       r.FullName,
		Email:          r.Email,
		MobileNumber:   r.MobileNumber,
		CountryCode:    r.CountryCode,
		Gender:         r.Gender,
		Location:       r.Location,
		Country:        r.Country,
		PlanID:         r.PlanID,
		Amount:         domain.Amount(r.Amount),
		PaymentMethod:  r.PaymentMethod,
		PaymentAccount: r.PaymentAccount,
		PaymentStatus:  r.PaymentStatus,
		CreatedAt:      r.CreatedAt,
	}
	if r.PlanStarted.Valid {
		t := r.PlanStarted.Time
		tx.PlanStarted = &t
	}
	return tx
}

// --- TransactionStore -------------------------------------------------------

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if v, ok := domain.Active(filter.Status); ok {
		where = append(where, "payment_status = "+arg(v))
	}
	if v, ok := domain.Active(filter.Method); ok {
		where = append(where, "payment_method = "+arg(v))
	}
	if v, ok := domain.Active(filter.Account); ok {
		where = append(where, "payment_account = "+arg(v))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		p := arg("%" + escapeLike(term) + "%")
		where = append(where, fmt.Sprintf("(jb_id ILIKE %[1]s OR email ILIKE %[1]s OR full_name ILIKE %[1]s)", p))
	}
	if c := filter.Cursor; c != nil {
		where = append(where, fmt.Sprintf("(created_at, id::text) < (%s, %s)", arg(c.CreatedAt), arg(c.ID)))
	}

	query := "SELECT " + transactionColumns + " FROM jobboard_transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]domain.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.transaction()
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) GetTransactionByJBID(ctx context.Context, jbID string) (domain.Transaction, error) {
	var row transactionRow
	err := s.db.GetContext(ctx, &row, "SELECT "+transactionColumns+" FROM jobboard_transactions WHERE jb_id = $1", jbID)
	if err != nil {
		return domain.Transaction{}, mapErr(err)
	}
	return row.transaction(), nil
}

type bucketRow struct {
	Key string `db:"k"`
	N   int    `db:"n"`
}

// TransactionStats aggregates in SQL.
func (s *Store) TransactionStats(ctx context.Context) (domain.Stats, error) {
	stats := domain.NewStats()

	var totals struct {
		Total   int     `db:"total"`
		Success int     `db:"success"`
		Failed  int     `db:"failed"`
		Pending int     `db:"pending"`
		Revenue float64 `db:"revenue"`
	}
	err := s.db.GetContext(ctx, &totals, `
		SELECT count(*) AS total,
		       count(*) FILTER (WHERE payment_status = 'success') AS success,
		       count(*) FILTER (WHERE payment_status = 'failed') AS failed,
		       count(*) FILTER (WHERE payment_status = 'pending') AS pending,
		       coalesce(sum(amount) FILTER (WHERE payment_status = 'success'), 0) AS revenue
		FROM jobboard_transactions`)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("transaction totals: %w", err)
	}
	stats.Total, stats.Success, stats.Failed, stats.Pending = totals.Total, totals.Success, totals.Failed, totals.Pending
	stats.TotalRevenue = totals.Revenue

	buckets := []struct {
		column string
		into   map[string]int
	}{
		{"payment_method", stats.ByMethod},
		{"payment_account", stats.ByAccount},
		{"plan_id", stats.ByPlan},
	}
	for _, b := range buckets {
		var rows []bucketRow
		query := fmt.Sprintf(`SELECT %[1]s AS k, count(*) AS n FROM jobboard_transactions
			WHERE payment_status = 'success' AND %[1]s <> '' GROUP BY %[1]s`, b.column)
		if err := s.db.SelectContext(ctx, &rows, query); err != nil {
			return domain.Stats{}, fmt.Errorf("transaction stats by %s: %w", b.column, err)
		}
		for _, r := range rows {
			b.into[r.Key] = r.N
		}
	}
	return stats, nil
}

// --- SettingsStore ----------------------------------------------------------

func (s *Store) GetSettings(ctx context.Context, keys ...string) (map[string]string, error) {
	var rows []domain.Setting
	err := s.db.SelectContext(ctx, &rows,
		`SELECT setting_key, setting_value, updated_at FROM admin_settings WHERE setting_key = ANY($1)`,
		pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// UpsertSettings writes all pairs inside one transaction.
func (s *Store) UpsertSettings(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO admin_settings (setting_key, setting_value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (setting_key)
			DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = EXCLUDED.updated_at
		`, k, v, now); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- AdminStore -------------------------------------------------------------

const adminColumns = `id, email, password_hash, is_active, created_at, updated_at, last_login`

func (s *Store) CreateAdmin(ctx context.Context, user domain.AdminUser) (domain.AdminUser, error) {
	var out domain.AdminUser
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO admin_users (email, password_hash, is_active)
		VALUES ($1, $2, $3)
		RETURNING `+adminColumns, user.Email, user.PasswordHash, user.IsActive)
	if err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return out, nil
}

func (s *Store) GetAdmin(ctx context.Context, id string) (domain.AdminUser, error) {
	var out domain.AdminUser
	if err := s.db.GetContext(ctx, &out, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id); err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return out, nil
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (domain.AdminUser, error) {
	var out domain.AdminUser
	if err := s.db.GetContext(ctx, &out, `SELECT `+adminColumns+` FROM admin_users WHERE email = $1`, email); err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return out, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	var out []domain.AdminUser
	if err := s.db.SelectContext(ctx, &out, `SELECT `+adminColumns+` FROM admin_users ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateAdmin(ctx context.Context, user domain.AdminUser) (domain.AdminUser, error) {
	var out domain.AdminUser
	err := s.db.GetContext(ctx, &out, `
		UPDATE admin_users
		SET password_hash = $2, is_active = $3, last_login = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+adminColumns, user.ID, user.PasswordHash, user.IsActive, user.LastLogin, time.Now().UTC())
	if err != nil {
		return domain.AdminUser{}, mapErr(err)
	}
	return out, nil
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) HasAdmins(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM admin_users)`); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return exists, nil
}

// --- SessionStore -----------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO admin_sessions (id, admin_id, email, token_hash, created_at, expires_at, last_seen_at)
		VALUES (:id, :admin_id, :email, :token_hash, :created_at, :expires_at, :last_seen_at)
	`, sess)
	return mapErr(err)
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	var out domain.Session
	err := s.db.GetContext(ctx, &out, `
		SELECT id, admin_id, email, token_hash, created_at, expires_at, last_seen_at
		FROM admin_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return domain.Session{}, mapErr(err)
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *Store) DeleteSessionsForAdmin(ctx context.Context, adminID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE admin_id = $1`, adminID)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
