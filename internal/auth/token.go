package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// TokenKind scopes a disposable token to a single purpose. The kind is part
// of the consumption predicate, so a verify token can never satisfy a
// password-reset consumption and vice versa.
type TokenKind string

const (
	TokenKindVerify        TokenKind = "verify"
	TokenKindResetPassword TokenKind = "reset_password"
)

// DefaultTokenTTL is the forward expiry window for freshly issued tokens.
const DefaultTokenTTL = 48 * time.Hour

// tokenBytes is the entropy of the random token string. 32 bytes is double
// the 16-byte floor the consumption race analysis assumes.
const tokenBytes = 32

// DisposableToken is a single-use, time-boxed credential for one sensitive
// action. It transitions used=false -> used=true exactly once.
type DisposableToken struct {
	ID        string
	AccountID string
	Email     string
	Kind      TokenKind
	Token     string
	Used      bool
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

func NewDisposableTokenString() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
