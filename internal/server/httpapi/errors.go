package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is advertised when the address pool is empty.
const retryAfterSeconds = "60"

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorMapping struct {
	err       error
	status    int
	code      string
	detailed  bool // expose the wrapped message instead of the sentinel's
	retryable bool
}

var errorTable = []errorMapping{
	{err: common.ErrorValidation, status: http.StatusBadRequest, code: "validation", detailed: true},
	{err: common.ErrorAlreadyExists, status: http.StatusConflict, code: "already_exists"},
	{err: common.ErrorNotFound, status: http.StatusNotFound, code: "not_found"},
	{err: common.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "invalid_credentials"},
	{err: common.ErrInvalid2FA, status: http.StatusUnauthorized, code: "invalid_2fa"},
	{err: common.ErrNotEnrolled, status: http.StatusBadRequest, code: "2fa_not_enrolled"},
	{err: common.ErrAlreadyEnrolled, status: http.StatusConflict, code: "2fa_already_enabled"},
	{err: common.ErrTokenExpired, status: http.StatusUnauthorized, code: "token_expired"},
	{err: common.ErrInvalidToken, status: http.StatusUnauthorized, code: "invalid_token"},
	{err: common.ErrorUnauthorized, status: http.StatusUnauthorized, code: "unauthorized"},
	{err: common.ErrUnsupportedNetwork, status: http.StatusBadRequest, code: "unsupported_network", detailed: true},
	{err: common.ErrPoolExhausted, status: http.StatusServiceUnavailable, code: "pool_exhausted", retryable: true},
	{err: common.ErrInsufficientBalance, status: http.StatusPaymentRequired, code: "insufficient_balance", detailed: true},
	{err: common.ErrConversion, status: http.StatusBadGateway, code: "conversion_failed"},
	{err: common.ErrorUnavailable, status: http.StatusServiceUnavailable, code: "unavailable"},
}

func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{status: http.StatusInternalServerError, code: "internal", err: common.ErrorInternal}, false
}

// abortWithError writes the JSON error for err and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	m, known := lookupError(err)
	if !known || m.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	msg := m.err.Error()
	if m.detailed {
		msg = err.Error()
	}
	if m.retryable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.AbortWithStatusJSON(m.status, errorBody{Error: msg, Code: m.code, Retryable: m.retryable})
}
