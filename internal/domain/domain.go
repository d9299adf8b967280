// Package domain holds the portal's record types.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payment statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// Setting keys.
const (
	SettingPaymentMethod  = "payment_method"
	SettingPaymentAccount = "payment_account"
)

// Transaction is a job-board purchase recorded by the payment webhook.
type Transaction struct {
	ID             string     `json:"id" db:"id"`
	JBID           string     `json:"jb_id" db:"jb_id"`
	FullName       string     `json:"full_name" db:"full_name"`
	Email          string     `json:"email" db:"email"`
	MobileNumber   string     `json:"mobile_number" db:"mobile_number"`
	CountryCode    string     `json:"country_code" db:"country_code"`
	Gender         string     `json:"gender" db:"gender"`
	Location       string     `json:"location" db:"location"`
	Country        string     `json:"country" db:"country"`
	PlanID         string     `json:"plan_id" db:"plan_id"`
	Amount         Amount     `json:"amount" db:"amount"`
	PaymentMethod  string     `json:"payment_method" db:"payment_method"`
	PaymentAccount string     `json:"payment_account" db:"payment_account"`
	PaymentStatus  string     `json:"payment_status" db:"payment_status"`
	PlanStarted    *time.Time `json:"plan_started,omitempty" db:"plan_started"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Amount is a decimal that PostgREST may serialise as a number or a string.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(a))
}

// Setting is one admin_settings row.
type Setting struct {
	Key       string    `json:"setting_key" db:"setting_key"`
	Value     string    `json:"setting_value" db:"setting_value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PaymentSettings is the active gateway.
type PaymentSettings struct {
	Method  string `json:"method"`
	Account string `json:"account"`
}

// Pricing maps plan id to its price as entered by an admin.
type Pricing map[string]string

// AdminUser is an admin_users row. PasswordHash never leaves the service layer.
type AdminUser struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// Session is a server-side admin session.
type Session struct {
	ID         string    `json:"id" db:"id"`
	AdminID    string    `json:"admin_id" db:"admin_id"`
	Email      string    `json:"email" db:"email"`
	TokenHash  string    `json:"-" db:"token_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TransactionFilter narrows a transaction listing. "all" and "" mean no
// constraint.
type TransactionFilter struct {
	Status  string
	Method  string
	Account string
	Search  string
	Limit   int
	Cursor  *Cursor
}

// Active returns v unless it is empty or "all".
func Active(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return "", false
	}
	return v, true
}

// Page is one page of transactions, newest first.
type Page struct {
	Items      []Transaction `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
