package auth

import "errors"

// Flow outcomes. NotFound deliberately covers expired, already-used,
// kind-mismatched and unknown tokens as well as missing accounts, so callers
// cannot tell which clause failed.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
)
