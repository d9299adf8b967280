package supabase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// PostgREST error codes the portal reacts to.
const (
	CodeNoRows          = "PGRST116"
	CodeUniqueViolation = "23505"
)

// Error represents a Supabase API error.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("status %d", e.StatusCode)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase error %s: %s", e.Code, msg)
	}
	return "supabase error: " + msg
}

func parseError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		e.Code = res.Get("code").String()
		e.Details = res.Get("details").String()
		e.Hint = res.Get("hint").String()
		for _, key := range []string{"message", "error_description", "error", "msg"} {
			if v := res.Get(key); v.Exists() && v.Type == gjson.String && v.String() != "" {
				e.Message = v.String()
				break
			}
		}
	}
	if e.Message == "" {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200]
		}
		if text == "" {
			text = http.StatusText(status)
		}
		e.Message = text
	}
	return e
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFound reports a missing row for a single-row query.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.Code == CodeNoRows || e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusNotAcceptable
}

// IsUniqueViolation reports a duplicate key error.
func IsUniqueViolation(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	return e.Code == CodeUniqueViolation || e.StatusCode == http.StatusConflict
}
