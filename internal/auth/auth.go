// Package auth backs the host-only guards with signed host tokens. It is
// deliberately narrow: issue a token for a host identity, verify a token
// back into one. Account management lives elsewhere.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for missing, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid host token")

// HostAuth issues and verifies HS256 host tokens.
type HostAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewHostAuth(secret string, ttl time.Duration) *HostAuth {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &HostAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken signs a token carrying hostID as its subject.
func (a *HostAuth) IssueToken(hostID string) (string, error) {
	if hostID == "" {
		return "", fmt.Errorf("issue token: empty host id")
	}
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   hostID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	return token.SignedString(a.secret)
}

// VerifyToken returns the host identity a token was issued for.
func (a *HostAuth) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
