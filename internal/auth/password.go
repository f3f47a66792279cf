package auth

import "golang.org/x/crypto/bcrypt"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (b *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare treats an empty or malformed hash as "no match" so callers can pass
// an absent hash without branching.
func (b *BcryptHasher) Compare(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// sentinelHash is a well-formed bcrypt hash of a random throwaway value,
// computed once at startup. Login compares against it when no account
// matches, so the miss path still pays the full bcrypt cost.
var sentinelHash = func() string {
	raw, err := NewDisposableTokenString()
	if err != nil {
		raw = "sentinel"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return ""
	}
	return string(hash)
}()
