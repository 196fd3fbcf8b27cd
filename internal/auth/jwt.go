// Package auth implements the login session: an OIDC authorization-code flow
// against the identity provider, and a signed session cookie afterwards.
//
// SESSION FLOW:
//  1. GET /auth/login stores a random state in a cookie and redirects to the provider
//  2. The provider calls back /auth/callback with a code and the state
//  3. The server exchanges the code, reads email/name/picture from userinfo,
//     and finds or creates the user by email
//  4. The server issues a session JWT and stores it in the HttpOnly "session" cookie
//  5. GET /auth/profile reads the cookie, validates the JWT and loads the user
//
// SESSION TOKEN:
// The cookie value is an HS256 JWT. Its "sub" claim is the numeric user id,
// written in decimal. Nothing else about the user lives in the token, so a
// profile change is visible on the next request without re-issuing it.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "toolhub"

	// DefaultSessionTTL is how long a session cookie stays valid.
	DefaultSessionTTL = 14 * 24 * time.Hour

	MinSecretLength = 16
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("auth: invalid session token")

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Generate. The cookie MaxAge uses it too.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate issues a session token for userID.
func (s *TokenService) Generate(userID int64) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use it to
// mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate verifies tokenStr and returns the user id in its subject.
//
// WithValidMethods pins HS256, so a token claiming "none" or an RSA
// algorithm is rejected before the key func ever runs.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}

	return id, nil
}
