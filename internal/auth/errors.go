package auth

import "errors"

var (
	// ErrUnauthorized covers every credential failure. Callers must not learn
	// whether the identifier or the password was wrong.
	ErrUnauthorized = errors.New("auth: unauthorized")

	// ErrInvalidToken indicates the token failed signature, expiry or
	// denylist validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)
