// Package auth issues and checks the credentials of the eventd backend:
// HS256 access tokens, bcrypt password hashes, and the HTTP middleware that
// turns a bearer token (or the "token" cookie) into a user ID on the request
// context.
//
// SESSION FLOW:
//  1. POST /auth/signup or /auth/login verifies the password
//  2. the backend issues a JWT whose "sub" claim is the user (profile) ID
//  3. the client sends it back as "Authorization: Bearer <jwt>"
//  4. RequireAuth validates it and stores the user ID on the context
//
// The token is the whole session: nothing is stored server-side, so signing
// out is purely a client concern (drop the token).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "eventhub"

// DefaultTokenTTL is used when NewTokenService is given a non-positive TTL.
const DefaultTokenTTL = time.Hour

var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies access tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for userID valid for the service TTL and returns it
// with its expiry time.
func (s *TokenService) Issue(userID string) (string, time.Time, error) {
	return s.issue(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. A negative d
// yields an already expired token, which the tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	token, _, err := s.issue(userID, d)
	return token, err
}

func (s *TokenService) issue(userID string, d time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("auth: cannot issue a token without a subject")
	}

	now := s.now()
	expires := now.Add(d)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}

	// NumericDate has second precision; report what the token actually says.
	return signed, c.ExpiresAt.Time, nil
}

// Validate verifies signature, algorithm, issuer and expiry, and returns the
// user ID from the "sub" claim.
//
// jwt.WithValidMethods pins HS256 so a token claiming alg "none" (or an RSA
// alg keyed with our secret as a public key) is rejected outright.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}

	return c.Subject, nil
}
