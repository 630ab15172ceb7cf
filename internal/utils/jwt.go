// Package utils mints the HS256 access tokens accepted by the JWT
// middleware.  Accounts live in the wider operations suite; this service
// only needs tokens for floorctl and tests.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed JWT with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token for subject with the given role that
// expires after ttlMin minutes.  Claims: sub, role, exp, iat.
func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("empty signing secret")
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
