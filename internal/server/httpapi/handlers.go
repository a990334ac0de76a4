package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/convert"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type handlers struct {
	gw Gateway
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	APIKey    string    `json:"api_key"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type networkRequest struct {
	Network string `json:"network"`
}

type poolRequest struct {
	Addresses []string `json:"addresses"`
}

type paymentRequest struct {
	Network string          `json:"network"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

// bind decodes the JSON body into dst, reporting malformed input as a validation error.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, fmt.Errorf("%w: invalid request body: %v", common.ErrorValidation, err))
		return false
	}
	return true
}

// number renders a decimal as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": common.Version})
}

// POST /api/auth/register
func (h *handlers) register(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.gw.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: s.Token, APIKey: s.APIKey, UserID: s.AccountID, ExpiresAt: s.ExpiresAt})
}

// POST /api/auth/login
func (h *handlers) login(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.gw.Login(c.Request.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if res.Requires2FA {
		c.JSON(http.StatusOK, gin.H{"requires_2fa": true, "message": "2FA code required"})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: res.Session.Token, APIKey: res.Session.APIKey, ExpiresAt: res.Session.ExpiresAt})
}

// GET /api/account/balance
func (h *handlers) balance(c *gin.Context) {
	b, err := h.gw.Balance(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": number(b.Balance), "used": number(b.Used), "tier": b.Tier})
}

// POST /api/account/regenerate-key
func (h *handlers) regenerateKey(c *gin.Context) {
	key, err := h.gw.RotateAPIKey(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"api_key": key})
}

// POST /api/account/2fa/setup
func (h *handlers) setup2FA(c *gin.Context) {
	e, err := h.gw.SetupTwoFactor(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": e.Secret, "otpauth_url": e.URL})
}

// codeFrom reads the TOTP code from ?code= or, failing that, a JSON body.
func codeFrom(c *gin.Context) (string, bool) {
	if code := c.Query("code"); code != "" {
		return code, true
	}
	var req codeRequest
	if c.Request.ContentLength != 0 {
		if !bind(c, &req) {
			return "", false
		}
	}
	if req.Code == "" {
		abortWithError(c, fmt.Errorf("%w: code is required", common.ErrorValidation))
		return "", false
	}
	return req.Code, true
}

// POST /api/account/2fa/verify
func (h *handlers) verify2FA(c *gin.Context) {
	code, ok := codeFrom(c)
	if !ok {
		return
	}
	success, err := h.gw.ConfirmTwoFactor(c.Request.Context(), currentAccount(c).ID, code)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": success})
}

// POST /api/account/2fa/disable
func (h *handlers) disable2FA(c *gin.Context) {
	code, ok := codeFrom(c)
	if !ok {
		return
	}
	if err := h.gw.DisableTwoFactor(c.Request.Context(), currentAccount(c).ID, code); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/payments/networks
func (h *handlers) networks(c *gin.Context) {
	c.JSON(http.StatusOK, h.gw.Networks())
}

// POST /api/payments/get-address
func (h *handlers) getAddress(c *gin.Context) {
	var req networkRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.gw.RequestAddress(c.Request.Context(), currentAccount(c).ID, req.Network)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": a.Address, "network": a.Network, "network_name": a.NetworkName})
}

// POST /api/convert
func (h *handlers) convert(c *gin.Context) {
	var req convert.Request
	if !bind(c, &req) {
		return
	}
	res, err := h.gw.Convert(c.Request.Context(), currentAccount(c).ID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/admin/pools/:network
func (h *handlers) loadPool(c *gin.Context) {
	var req poolRequest
	if !bind(c, &req) {
		return
	}
	added, size, err := h.gw.LoadPool(c.Request.Context(), c.Param("network"), req.Addresses)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "pool_size": size})
}

// POST /api/admin/payments
func (h *handlers) creditPayment(c *gin.Context) {
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.gw.CreditPayment(c.Request.Context(), req.Network, req.Address, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": res.AccountID, "balance": number(res.Balance)})
}
