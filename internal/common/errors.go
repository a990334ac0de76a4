// Package common defines shared constants and sentinel errors used across
// the any2json server and client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnavailable  = errors.New("service unavailable")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Credential errors.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token lifecycle errors. ErrInvalidToken covers every malformed,
	// forged or tampered token; ErrTokenExpired is only returned for a
	// correctly signed token past its expiry.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Two-factor errors.
	ErrInvalid2FA      = errors.New("invalid 2FA code")
	ErrNotEnrolled     = errors.New("2FA not set up")
	ErrAlreadyEnrolled = errors.New("2FA already enabled")

	// Payment address errors.
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrPoolExhausted      = errors.New("no addresses available")

	// Metering errors.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConversion          = errors.New("conversion failed")
)
