package sca

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// RedirectTokens issues and verifies the signed tokens binding a redirect
// SCA flow to its authorisation. The token travels to the bank's online
// banking front end and comes back on the out-of-band callback; verifying
// it is what lets the callback stand in for a direct verification call.
type RedirectTokens struct {
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewRedirectTokens constructs the token service with an HS256 signing key.
func NewRedirectTokens(signKey []byte, ttl time.Duration) *RedirectTokens {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedirectTokens{signKey: signKey, ttl: ttl, now: time.Now}
}

type redirectClaims struct {
	ParentID string `json:"parentId"`
	jwt.RegisteredClaims
}

// Issue creates a callback token for the authorisation.
func (r *RedirectTokens) Issue(a *model.Authorisation) (string, error) {
	now := r.now()
	claims := redirectClaims{
		ParentID: a.ParentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.signKey)
}

// Verify checks a callback token and returns the authorisation id it is
// bound to. An expired token maps to ErrExpired, any other defect to
// ErrBadCredential: a forged or mangled token is an authentication failure,
// not a format problem.
func (r *RedirectTokens) Verify(token string) (uuid.UUID, error) {
	var claims redirectClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return r.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("%w: redirect token expired", errs.ErrExpired)
		}
		return uuid.Nil, fmt.Errorf("%w: invalid redirect token", errs.ErrBadCredential)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: redirect token subject", errs.ErrBadCredential)
	}
	return id, nil
}
