package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Cursor marks the last row of a page in (created_at desc, id desc) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode returns the opaque form handed to clients.
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a value produced by Encode.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid cursor time: %w", err)
	}
	return &Cursor{CreatedAt: ts, ID: parts[1]}, nil
}

// After reports whether t sorts after the cursor in newest-first order.
func (c Cursor) After(t Transaction) bool {
	if t.CreatedAt.Equal(c.CreatedAt) {
		return t.ID < c.ID
	}
	return t.CreatedAt.Before(c.CreatedAt)
}

// CursorFor returns the cursor pointing at t.
func CursorFor(t Transaction) Cursor {
	return Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
}
