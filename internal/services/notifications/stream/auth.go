package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const streamTokenIssuer = "castmatch"

var (
	// ErrTokenInvalid indicates the stream token failed verification.
	ErrTokenInvalid = errors.New("stream token is invalid")
	// ErrTokenExpired indicates the stream token is past its expiry.
	ErrTokenExpired = errors.New("stream token is expired")
	// ErrVerifierNotConfigured indicates the verifier is missing its secret.
	ErrVerifierNotConfigured = errors.New("stream token verifier is not configured")
)

// TokenVerifier issues and verifies the signed tokens that authenticate
// stream connections. Tokens are HS256 with the user id as subject.
type TokenVerifier struct {
	secret []byte
	clock  func() time.Time
}

// NewTokenVerifier constructs a verifier over one shared secret.
func NewTokenVerifier(secret []byte, clock func() time.Time) *TokenVerifier {
	if clock == nil {
		clock = time.Now
	}
	return &TokenVerifier{
		secret: secret,
		clock:  clock,
	}
}

// Issue mints a stream token for one user.
func (v *TokenVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrVerifierNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrTokenInvalid
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := v.clock().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    streamTokenIssuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate verifies one stream token and returns the user id it carries.
func (v *TokenVerifier) Authenticate(_ context.Context, token string) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrVerifierNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenInvalid
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", ErrTokenInvalid
	}

	if parsed.Issuer != streamTokenIssuer {
		return "", ErrTokenInvalid
	}
	userID := strings.TrimSpace(parsed.Subject)
	if userID == "" {
		return "", ErrTokenInvalid
	}
	if parsed.ExpiresAt == nil {
		return "", ErrTokenInvalid
	}
	now := v.clock().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return "", ErrTokenExpired
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return "", ErrTokenInvalid
	}
	return userID, nil
}
