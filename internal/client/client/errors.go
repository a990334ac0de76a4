package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
)

// ErrUnavailable means the server could not be reached.
var ErrUnavailable = errors.New("server unavailable")

var codeErrors = map[string]error{
	"validation":           common.ErrorValidation,
	"already_exists":       common.ErrorAlreadyExists,
	"not_found":            common.ErrorNotFound,
	"invalid_credentials":  common.ErrInvalidCredentials,
	"invalid_2fa":          common.ErrInvalid2FA,
	"2fa_not_enrolled":     common.ErrNotEnrolled,
	"2fa_already_enabled":  common.ErrAlreadyEnrolled,
	"invalid_token":        common.ErrInvalidToken,
	"token_expired":        common.ErrTokenExpired,
	"unauthorized":         common.ErrorUnauthorized,
	"unsupported_network":  common.ErrUnsupportedNetwork,
	"pool_exhausted":       common.ErrPoolExhausted,
	"insufficient_balance": common.ErrInsufficientBalance,
	"conversion_failed":    common.ErrConversion,
	"unavailable":          common.ErrorUnavailable,
	"internal":             common.ErrorInternal,
}

// APIError is a decoded error response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}
