package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims carries only the account id. Role and email are looked up at
// use time so the credential never goes stale on those axes.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid"`
}

// TokenIssuer mints stateless signed access credentials. There is no revoke
// or refresh: a credential stays valid for its full signed lifetime even if
// the account is deactivated afterwards.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

func NewTokenIssuer(key []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, ttl: ttl}
}

func (i *TokenIssuer) Issue(accountID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UID: accountID,
	})
	return token.SignedString(i.key)
}

// Parse validates the signature and expiry and returns the account id.
func (i *TokenIssuer) Parse(tokenString string) (string, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.UID == "" {
		return "", ErrNotFound
	}
	return claims.UID, nil
}
