// Package common defines shared constants and sentinel errors used across
// the postboard server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorForbidden       = errors.New("forbidden")
	ErrorInvalidArgument = errors.New("invalid argument")

	// Login errors. Deliberately one error for unknown email and wrong
	// password so the API does not leak which half was wrong.
	ErrorInvalidCredentials = errors.New("email or password is incorrect")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
