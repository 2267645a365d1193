// Package auth mints and validates session tokens, hashes passwords and
// builds the session cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAuthenticated is the role claim carried by every session token.
const RoleAuthenticated = "authenticated"

// Claims are the registered claims plus the role and email of the session owner.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
}

// UserID returns the subject.
func (c *Claims) UserID() string {
	return c.Subject
}

type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewIssuer(secret, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl, now: time.Now}
}

// WithClock makes Parse judge expiry against now instead of the wall clock.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs an HS256 session token for userID valid for the issuer TTL.
func (i *Issuer) Issue(userID, email string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:  RoleAuthenticated,
		Email: email,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates signature, issuer, audience and expiry. Expired tokens
// yield common.ErrSessionExpired, anything else common.ErrInvalidSession.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrSessionExpired
		}
		return nil, common.ErrInvalidSession
	}

	if !token.Valid || claims.Role != RoleAuthenticated || claims.Subject == "" {
		return nil, common.ErrInvalidSession
	}

	return claims, nil
}
