// Package auth provides JWT bearer-token verification and password hashing.
//
// AUTHENTICATION FLOW:
// 1. Client registers (POST /auth/register) — password stored as a bcrypt hash
// 2. Client logs in (POST /auth/login) — server issues a signed JWT whose
//    subject is the user's ID
// 3. On protected routes the client sends "Authorization: Bearer <token>";
//    middleware validates it and puts the userID in the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. All the information needed (userID, expiry) is inside the signed token,
// and the signature ensures nobody can tamper with it without the secret key.
// The server verifies the signature without any DB lookup — just the secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired lets the middleware tell an expired token apart from a
// tampered one when choosing an error message.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation. It holds the HMAC secret
// used to sign and verify — the same secret must serve both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; "sub" carries the user ID.
type claims struct {
	jwt.RegisteredClaims
}

const issuer = "rigel"

// Generate creates and signs a new access token for the given userID.
//
// Token lifetime: 24 hours — the frontend polls the feed across a session and
// there is no refresh-token flow, so a sub-hour expiry would log people out
// mid-scroll.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric, fast, fine for a
// single-server deployment.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, 24*time.Hour)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the userID from the
// "sub" claim.
//
// The jwt library checks the signature, the expiry, the issuer, and —
// via WithValidMethods — that the algorithm really is HS256. Without that
// last check an attacker could try an algorithm-confusion attack ("none",
// or RS256 with the public key as HMAC secret).
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
