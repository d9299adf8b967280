package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

var txCols = []string{
	"id", "jb_id", "full_name", "email", "mobile_number", "country_code", "gender",
	"location", "country", "plan_id", "amount", "payment_method", "payment_account",
	"payment_status", "plan_started", "created_at",
}

func TestGetTransactionByJBID(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM jobboard_transactions WHERE jb_id = \$1`).
		WithArgs("JB-7").
		WillReturnRows(sqlmock.NewRows(txCols).AddRow(
			"tx-7", "JB-7", "Ada Lovelace", "ada@example.com", "5551234", "+1", "Female",
			"USA", "United States", "monthly", 45.0, "paypal", "dubai", "success", created, created))

	tx, err := s.GetTransactionByJBID(context.Background(), "JB-7")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", tx.FullName)
	assert.InDelta(t, 45.0, float64(tx.Amount), 1e-9)
	require.NotNil(t, tx.PlanStarted)
	assert.True(t, tx.PlanStarted.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionByJBIDMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM jobboard_transactions`).WillReturnError(sql.ErrNoRows)

	_, err := s.GetTransactionByJBID(context.Background(), "JB-0")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListTransactionsQuery(t *testing.T) {
	s, mock := newMockStore(t)
	cursorAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM jobboard_transactions WHERE payment_status = \$1 AND \(jb_id ILIKE \$2 OR email ILIKE \$2 OR full_name ILIKE \$2\) AND \(created_at, id::text\) < \(\$3, \$4\) ORDER BY created_at DESC, id DESC LIMIT \$5`).
		WithArgs("failed", `%50\%%`, cursorAt, "tx-9", 26).
		WillReturnRows(sqlmock.NewRows(txCols))

	rows, err := s.ListTransactions(context.Background(), domain.TransactionFilter{
		Status: "failed", Method: "all", Search: "50%", Limit: 26,
		Cursor: &domain.Cursor{CreatedAt: cursorAt, ID: "tx-9"},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionStats(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT count\(\*\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "success", "failed", "pending", "revenue"}).AddRow(4, 2, 1, 1, 164.99))
	mock.ExpectQuery(`SELECT payment_method AS k`).
		WillReturnRows(sqlmock.NewRows([]string{"k", "n"}).AddRow("stripe", 2))
	mock.ExpectQuery(`SELECT payment_account AS k`).
		WillReturnRows(sqlmock.NewRows([]string{"k", "n"}).AddRow("india", 1).AddRow("dubai", 1))
	mock.ExpectQuery(`SELECT plan_id AS k`).
		WillReturnRows(sqlmock.NewRows([]string{"k", "n"}).AddRow("monthly", 1).AddRow("3-months", 1))

	stats, err := s.TransactionStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByMethod["stripe"])
	assert.Equal(t, 0, stats.ByMethod["paypal"])
	assert.Equal(t, 1, stats.ByAccount["india"])
	assert.Equal(t, 0, stats.ByPlan["6-months"])
	assert.InDelta(t, 164.99, stats.TotalRevenue, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSettingsIsTransactional(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO admin_settings`).WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO admin_settings`).WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpsertSettings(context.Background(), map[string]string{"payment_method": "stripe", "payment_account": "india"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSettingsRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO admin_settings`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := s.UpsertSettings(context.Background(), map[string]string{"payment_method": "stripe"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAdminDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO admin_users`).
		WithArgs("a@b.co", "hash", true).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := s.CreateAdmin(context.Background(), domain.AdminUser{Email: "a@b.co", PasswordHash: "hash", IsActive: true})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestDeleteAdminMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM admin_users WHERE id = \$1`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.DeleteAdmin(context.Background(), "u1"), storage.ErrNotFound)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectExec(`DELETE FROM admin_sessions WHERE expires_at <= \$1`).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestHasAdmins(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := s.HasAdmins(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.UpsertSettings(ctx, map[string]string{"payment_method": "stripe", "payment_account": "india"}))
	got, err := s.GetSettings(ctx, "payment_method", "payment_account")
	require.NoError(t, err)
	assert.Equal(t, "india", got["payment_account"])

	email := "it-" + time.Now().Format("150405.000000") + "@example.com"
	u, err := s.CreateAdmin(ctx, domain.AdminUser{Email: email, PasswordHash: "x", IsActive: true})
	require.NoError(t, err)
	defer func() { _ = s.DeleteAdmin(ctx, u.ID) }()

	_, err = s.CreateAdmin(ctx, domain.AdminUser{Email: email, PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}
