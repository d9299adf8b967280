package postgrest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywizz/portal/internal/domain"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/internal/supabase"
)

func newStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	return New(c)
}

func TestListTransactionsBuildsFilters(t *testing.T) {
	cursor := domain.Cursor{CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), ID: "tx-5"}
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/rest/v1/jobboard_transactions", r.URL.Path)
		assert.Equal(t, "eq.success", q.Get("payment_status"))
		assert.Empty(t, q.Get("payment_method"))
		assert.Equal(t, "eq.india", q.Get("payment_account"))
		assert.Equal(t,
			"(or(jb_id.ilike.*bob*,email.ilike.*bob*,full_name.ilike.*bob*),or(created_at.lt.2026-02-01T09:00:00Z,and(created_at.eq.2026-02-01T09:00:00Z,id.lt.tx-5)))",
			q.Get("and"))
		assert.Equal(t, "created_at.desc,id.desc", q.Get("order"))
		assert.Equal(t, "51", q.Get("limit"))
		_, _ = w.Write([]byte(`[{"id":"tx-4","jb_id":"JB-4","amount":"119.99","payment_status":"success","created_at":"2026-02-01T08:00:00Z"}]`))
	})

	rows, err := s.ListTransactions(context.Background(), domain.TransactionFilter{
		Status: "success", Method: "all", Account: "india", Search: "bob", Limit: 51, Cursor: &cursor,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 119.99, float64(rows[0].Amount), 1e-9)
}

func TestListTransactionsSearchOnly(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "(jb_id.ilike.*a@b.co*,email.ilike.*a@b.co*,full_name.ilike.*a@b.co*)", q.Get("or"))
		assert.Empty(t, q.Get("and"))
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := s.ListTransactions(context.Background(), domain.TransactionFilter{Search: " a@b.co, "})
	require.NoError(t, err)
}

func TestListTransactionsSearchEscapesUnderscore(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		want := `"*JB\\_2*"`
		assert.Equal(t, "(jb_id.ilike."+want+",email.ilike."+want+",full_name.ilike."+want+")", r.URL.Query().Get("or"))
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := s.ListTransactions(context.Background(), domain.TransactionFilter{Search: "JB_2"})
	require.NoError(t, err)
}

func TestGetTransactionNotFound(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"no rows"}`))
	})
	_, err := s.GetTransactionByJBID(context.Background(), "JB-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactionStatsFillsBuckets(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/transaction_stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"total":3,"success":2,"failed":1,"pending":0,"totalRevenue":164.99,"byMethod":{"stripe":2},"byAccount":{},"byPlan":{"monthly":1,"3-months":1}}`))
	})
	stats, err := s.TransactionStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByMethod["stripe"])
	assert.Equal(t, 0, stats.ByMethod["paypal"])
	assert.Contains(t, stats.ByAccount, "dubai")
	assert.InDelta(t, 164.99, stats.TotalRevenue, 1e-9)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/admin_settings":
			assert.Equal(t, "in.(payment_method,payment_account)", r.URL.Query().Get("setting_key"))
			_, _ = w.Write([]byte(`[{"setting_key":"payment_method","setting_value":"stripe"}]`))
		case "/rest/v1/rpc/upsert_admin_settings":
			var body map[string]map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "india", body["settings"]["payment_account"])
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	got, err := s.GetSettings(context.Background(), "payment_method", "payment_account")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"payment_method": "stripe"}, got)

	require.NoError(t, s.UpsertSettings(context.Background(), map[string]string{"payment_method": "stripe", "payment_account": "india"}))
}

func TestCreateAdminConflict(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint \"admin_users_email_key\""}`))
	})
	_, err := s.CreateAdmin(context.Background(), domain.AdminUser{Email: "a@b.co", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestCreateAdminReturnsRow(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		var rows []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "a@b.co", rows[0]["email"])
		assert.NotContains(t, rows[0], "id")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"u1","email":"a@b.co","password_hash":"x","is_active":true,"created_at":"2026-01-01T00:00:00Z"}]`))
	})
	u, err := s.CreateAdmin(context.Background(), domain.AdminUser{Email: "a@b.co", PasswordHash: "x", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "x", u.PasswordHash)
}

func TestDeleteAdminMissing(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_, _ = w.Write([]byte(`[]`))
	})
	assert.ErrorIs(t, s.DeleteAdmin(context.Background(), "nope"), storage.ErrNotFound)
}

func TestDeleteExpiredSessionsCountsRows(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lt.2026-05-01T00:00:00Z", r.URL.Query().Get("expires_at"))
		_, _ = w.Write([]byte(`[{"id":"a","token_hash":"x"},{"id":"b","token_hash":"y"}]`))
	})
	n, err := s.DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
