// Package identity performs the login handshake with the external identity
// provider and verifies the delegations it hands out.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Delegation is what a successful login yields: who the user is and the
// token the backend accepts on their behalf.
type Delegation struct {
	Principal string
	Token     string
	ExpiresAt time.Time
}

// Live reports whether the delegation can still be used at now.
func (d Delegation) Live(now time.Time) bool {
	return d.Principal != "" && now.Before(d.ExpiresAt)
}

// Provider is one browser's view of the identity provider. Login answers
// domain.ErrAlreadyAuthenticated while the provider still holds a delegation
// the caller has lost track of.
type Provider interface {
	Login(ctx context.Context, assertion string) (Delegation, error)
	Logout(ctx context.Context) error
}

var ErrInvalidToken = errors.New("invalid delegation token")

// Issuer signs and verifies delegation tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

func (i *Issuer) Sign(principal string, ttl time.Duration) (Delegation, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   principal,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Delegation{}, fmt.Errorf("sign delegation: %w", err)
	}
	return Delegation{Principal: principal, Token: token, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Parse verifies the signature and expiry of token.
func (i *Issuer) Parse(token string) (Delegation, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Delegation{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Delegation{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Delegation{Principal: claims.Subject, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}
