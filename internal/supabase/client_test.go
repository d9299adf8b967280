package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/", APIKey: "service-key"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}

func TestSelectBuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/jobboard_transactions", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.success", q.Get("payment_status"))
		assert.Equal(t, "(jb_id.ilike.*bob*,email.ilike.*bob*)", q.Get("or"))
		assert.Equal(t, "created_at.desc,id.desc", q.Get("order"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"jb_id":"JB-1"}]`))
	})

	var rows []map[string]any
	err := c.From("jobboard_transactions").
		Select("*").
		Eq("payment_status", "success").
		Or("jb_id.ilike.*bob*,email.ilike.*bob*").
		Order("created_at", false).
		Order("id", false).
		Limit(10).
		Into(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "JB-1", rows[0]["jb_id"])
}

func TestSingleNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"The result contains 0 rows"}`))
	})

	_, err := c.From("admin_users").Select("*").Eq("email", "a@b.co").Single().Execute(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUniqueViolation(err))

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNoRows, e.Code)
	assert.Contains(t, e.Error(), "0 rows")
}

func TestInsertUniqueViolation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	})

	_, err := c.From("admin_users").ExecuteInsert(context.Background(), map[string]string{"email": "a@b.co"})
	assert.True(t, IsUniqueViolation(err))
}

func TestUpsertSetsConflictTarget(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "setting_key", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		body, _ := io.ReadAll(r.Body)
		var rows []map[string]string
		require.NoError(t, json.Unmarshal(body, &rows))
		assert.Len(t, rows, 2)
		_, _ = w.Write(body)
	})

	rows := []map[string]string{
		{"setting_key": "payment_method", "setting_value": "stripe"},
		{"setting_key": "payment_account", "setting_value": "india"},
	}
	_, err := c.From("admin_settings").ExecuteUpsert(context.Background(), rows, "setting_key")
	require.NoError(t, err)
}

func TestUpdateAndDeleteCarryFilters(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.From("admin_users").Eq("id", 42).ExecuteUpdate(context.Background(), map[string]bool{"is_active": false})
	require.NoError(t, err)
	_, err = c.From("admin_users").Eq("id", 42).ExecuteDelete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, methods)
}

func TestFunctionsInvoke(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/send-otp", r.URL.Path)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.co", in["email"])
		_, _ = w.Write([]byte(`{"success":true,"hash":"h1"}`))
	})

	var out struct {
		Success bool   `json:"success"`
		Hash    string `json:"hash"`
	}
	require.NoError(t, c.Functions().Invoke(context.Background(), "send-otp", map[string]string{"email": "a@b.co"}, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "h1", out.Hash)
}

func TestFunctionsInvokeErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	})

	err := c.Functions().Invoke(context.Background(), "send-otp", map[string]string{}, nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "rate limited", e.Message)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
}

func TestStorageUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/resumes/clients/resumes/JB1-20260101/resume.pdf", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF", string(body))
		_, _ = w.Write([]byte(`{"Key":"resumes/clients/resumes/JB1-20260101/resume.pdf"}`))
	})

	_, err := c.Storage().From("resumes").Upload(context.Background(), "/clients/resumes/JB1-20260101/resume.pdf", []byte("%PDF"), "application/pdf", true)
	require.NoError(t, err)
}

func TestParseErrorPlainText(t *testing.T) {
	e := parseError(http.StatusBadGateway, []byte("upstream down"))
	assert.Equal(t, "upstream down", e.Message)
	e = parseError(http.StatusInternalServerError, nil)
	assert.Equal(t, "Internal Server Error", e.Message)
}

func TestSanitizeTerm(t *testing.T) {
	assert.Equal(t, "bob@x.com", SanitizeTerm(" bob@x.com "))
	assert.Equal(t, "ab", SanitizeTerm("a,(b)*"))
	assert.Equal(t, "JB_2", SanitizeTerm("JB_2"))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "*bob*", ContainsPattern("bob"))
	assert.Equal(t, `"*JB\\_2*"`, ContainsPattern("JB_2"))
	assert.Equal(t, `"*a\\_b\\_c*"`, ContainsPattern("a_b_c"))
}
