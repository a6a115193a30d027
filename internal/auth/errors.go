package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrForbidden    = errors.New("auth: forbidden")

	// ErrInvalidCredentials is the single failure every login path collapses
	// to. Whether the identifier was unknown, the account inactive, or the
	// secret wrong must be indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
