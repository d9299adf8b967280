package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	svcerrors "github.com/applywizz/portal/internal/errors"
)

const (
	tokenIssuer   = "applywizz-portal"
	tokenAudience = "checkout-email"
)

// Verifier issues and checks email verification tokens. A token proves the
// holder completed OTP verification for one email address.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVerifier creates a Verifier. ttl <= 0 selects 30 minutes.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Verifier{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue signs a token for email.
func (v *Verifier) Issue(email string) (string, time.Time, error) {
	now := v.now()
	exp := now.Add(v.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   normalizeEmail(email),
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign verification token: %w", err)
	}
	return token, exp, nil
}

// Check accepts token only if it is valid and was issued for email.
func (v *Verifier) Check(token, email string) error {
	if token == "" {
		return svcerrors.Validation(svcerrors.FieldErrors{"email": MsgVerifyEmail})
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience), jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil {
		return svcerrors.Validation(svcerrors.FieldErrors{"email": MsgVerifyEmail})
	}
	if claims.Subject != normalizeEmail(email) {
		return svcerrors.Validation(svcerrors.FieldErrors{"email": MsgVerifyEmail})
	}
	return nil
}
