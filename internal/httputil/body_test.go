package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/applywizz/portal/internal/errors"
)

func TestReadAllWithLimit(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("abcdef"), 4)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, "abcd", string(data))

	data, truncated, err = ReadAllWithLimit(strings.NewReader("abc"), 4)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, "abc", string(data))
}

func TestReadAllStrict(t *testing.T) {
	_, err := ReadAllStrict(strings.NewReader("abcdef"), 3)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Email string `json:"email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
	require.NoError(t, DecodeJSON(req, &out))
	assert.Equal(t, "a@b.co", out.Email)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.Error(t, DecodeJSON(req, &out))
}

func TestWriteErrorUsesServiceStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), svcerrors.NotFound("No client found with this JB ID"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No client found with this JB ID")
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}
