package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	ok, rehash := h.Verify(hash, "s3cret!")
	assert.True(t, ok)
	assert.False(t, rehash)

	ok, _ = h.Verify(hash, "wrong")
	assert.False(t, ok)
}

func TestHasherAcceptsLegacyDigestOnce(t *testing.T) {
	sum := sha256.Sum256([]byte("admin123"))
	legacy := hex.EncodeToString(sum[:])
	require.True(t, IsLegacyHash(legacy))

	h := NewHasher(bcrypt.MinCost)
	ok, rehash := h.Verify(legacy, "admin123")
	assert.True(t, ok)
	assert.True(t, rehash)

	ok, rehash = h.Verify(legacy, "admin124")
	assert.False(t, ok)
	assert.False(t, rehash)
}

func TestHasherFlagsCostChange(t *testing.T) {
	old, err := bcrypt.GenerateFromPassword([]byte("pw1234"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, rehash := NewHasher(bcrypt.MinCost+1).Verify(string(old), "pw1234")
	assert.True(t, ok)
	assert.True(t, rehash)
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
}

func TestHasherRejectComparesAgainstDecoy(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	assert.False(t, h.Reject("anything"))
	assert.False(t, h.Reject(decoyPassword))

	cost, err := bcrypt.Cost(h.decoy)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
