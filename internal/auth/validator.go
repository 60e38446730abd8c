// Package auth verifies identity provider tokens and runs the PKCE login
// exchange.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredCredential = errors.New("credential expired")
	ErrInvalidCredential = errors.New("credential invalid")
)

type Validator struct {
	keys     *KeySet
	audience string
	now      func() time.Time
}

func NewValidator(keys *KeySet, audience string) *Validator {
	return &Validator{keys: keys, audience: audience, now: time.Now}
}

// Validate verifies token and returns its subject.
func (v *Validator) Validate(ctx context.Context, token string) (string, error) {
	claims, err := v.ValidateClaims(ctx, token)
	if err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidCredential)
	}
	return sub, nil
}

// ValidateClaims verifies an RS256 token against the key set and the
// configured audience. An expired token reports ErrExpiredCredential even
// when its signature would not verify.
func (v *Validator) ValidateClaims(ctx context.Context, token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	unverified := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	exp, err := unverified.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidCredential)
	}
	if !v.now().Before(exp.Time) {
		return nil, ErrExpiredCredential
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, v.keys.Keyfunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return claims, nil
}
