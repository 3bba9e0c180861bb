// Package auth issues and verifies the signed session tokens ("passports") handed to clients.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrInvalidToken covers bad signatures, foreign algorithms and expired tokens.
	ErrInvalidToken = apperr.New(apperr.KindInvalidToken, "invalid or expired token")
	// ErrMalformedToken is returned when the input is not a JWT at all.
	ErrMalformedToken = apperr.New(apperr.KindMalformedToken, "malformed token")

	errEmptySecret = errors.New("token signing secret must not be empty")
)

// TokenService signs and verifies HS256 tokens whose subject is a user ID.
// No refresh: an expired token forces a new login.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. An empty secret is an error because
// the server must not start without a signing key.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a new signed token for the given user ID.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token string and returns the user ID (subject) if it is valid.
func (s *TokenService) Verify(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrMalformedToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		// Only accept the algorithm we sign with.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return "", ErrMalformedToken.Wrap(err)
		}
		return "", ErrInvalidToken.Wrap(err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
