package applywizz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/pkg/logger"
)

func TestDirectOnboard(t *testing.T) {
	var got DirectOnboardRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"client_id":"c-1"}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, logger.Discard())
	res, err := c.DirectOnboard(context.Background(), DirectOnboardRequest{
		FullName:            "Ada Lovelace",
		ApplywizzID:         "JB-2",
		JobRolePreferences:  []string{"Data Analyst"},
		LocationPreferences: []string{},
		AlternateJobRoles:   []string{},
		WorkPreferences:     "Remote",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"client_id":"c-1"}`, string(res))
	assert.Equal(t, "JB-2", got.ApplywizzID)
	assert.Equal(t, []string{"Data Analyst"}, got.JobRolePreferences)
}

func TestDirectOnboardErrors(t *testing.T) {
	long := strings.Repeat("x", 300)
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail wins", 400, `{"detail":"email already onboarded","message":"bad"}`, "email already onboarded"},
		{"message", 422, `{"message":"phone is required"}`, "phone is required"},
		{"json without message", 500, `{"error":true}`, `API Error: 500 - {"error":true}`},
		{"plain text truncated", 502, long, "API Error: 502 - " + long[:200]},
		{"empty body", 503, "", "API Error: 503 -"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{URL: srv.URL}, logger.Discard()).DirectOnboard(context.Background(), DirectOnboardRequest{})
			require.Error(t, err)
			se := svcerrors.GetServiceError(err)
			require.NotNil(t, se)
			assert.Equal(t, svcerrors.CodeUpstream, se.Code)
			assert.Equal(t, tt.want, se.Message)
			assert.Equal(t, tt.status, se.Details["status"])
			assert.Equal(t, 1, calls)
		})
	}
}

func TestDirectOnboardUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{URL: url}, logger.Discard()).DirectOnboard(context.Background(), DirectOnboardRequest{})
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeUpstream))
}
