// Package jwt issues and validates the signed access tokens used by
// the HTTP layer.
package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/incidentflow/incidentflow/internal/authz"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/incidentflow/incidentflow/internal/identity"
)

const issuer = "incidentflow"

// Claims carried by an access token. Permissions are embedded so the
// middleware never needs a database round trip; unknown tokens are
// dropped on validation.
type Claims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Authenticator issues and validates HS256 tokens.
type Authenticator struct {
	secret   []byte
	lifetime time.Duration
}

// NewAuthenticator creates an authenticator with the given signing
// secret and token lifetime.
func NewAuthenticator(secret string, lifetime time.Duration) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

// GenerateToken issues a signed token for the user.
func (a *Authenticator) GenerateToken(ctx context.Context, user *domain.User, perms []string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(a.lifetime)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:    user.Username,
		Role:        user.Role,
		Permissions: perms,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateToken parses and verifies a token, returning the identity it
// carries. Implements httputil.TokenValidator.
func (a *Authenticator) ValidateToken(ctx context.Context, tokenString string) (string, string, authz.Set, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return "", "", nil, identity.ErrInvalidToken
	}

	return claims.Subject, claims.Role, authz.FromValues(claims.Permissions), nil
}
