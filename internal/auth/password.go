// Package auth handles admin credentials and sessions.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds for admin accounts. bcrypt refuses input longer
// than MaxPasswordBytes.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

const decoyPassword = "applywizz-no-such-account"

var legacyHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Hasher hashes admin passwords with bcrypt. It still verifies the unsalted
// SHA-256 hex digests written by the old admin scripts so those accounts can
// log in once and be rehashed.
type Hasher struct {
	cost int

	decoyOnce sync.Once
	decoy     []byte
}

// NewHasher returns a Hasher. Costs outside bcrypt's range fall back to the
// default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches hash, and whether the stored hash
// should be replaced (legacy digest or a different bcrypt cost).
func (h *Hasher) Verify(hash, password string) (ok, rehash bool) {
	if IsLegacyHash(hash) {
		sum := sha256.Sum256([]byte(password))
		ok = subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hash)) == 1
		return ok, ok
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return false, false
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return true, err == nil && cost != h.cost
}

// Reject runs a bcrypt comparison against a fixed hash at the hasher's cost
// and always reports false. Login calls it for unknown accounts so they take
// as long as a wrong password.
func (h *Hasher) Reject(password string) bool {
	h.decoyOnce.Do(func() {
		h.decoy, _ = bcrypt.GenerateFromPassword([]byte(decoyPassword), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(password))
	return false
}

// IsLegacyHash reports whether hash is a bare SHA-256 hex digest.
func IsLegacyHash(hash string) bool {
	return legacyHash.MatchString(hash)
}
