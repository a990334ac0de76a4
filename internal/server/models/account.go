// Package models defines server-side data models persisted by the stores.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier classifies an account for admission of metered requests.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPaid
}

// TwoFactorState is derived from the stored TOTP fields.
type TwoFactorState string

const (
	TwoFactorDisabled TwoFactorState = "disabled"
	TwoFactorPending  TwoFactorState = "pending_verification"
	TwoFactorEnabled  TwoFactorState = "enabled"
)

// Account is the identity record behind every credential.
// TOTPEnabled implies TOTPSecret is set; stores refuse to break this.
type Account struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"password_hash"`
	APIKey       string          `json:"api_key"`
	Balance      decimal.Decimal `json:"balance"`
	Used         decimal.Decimal `json:"used"`
	Tier         Tier            `json:"tier"`
	TOTPSecret   string          `json:"totp_secret,omitempty"`
	TOTPEnabled  bool            `json:"totp_enabled"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TwoFactorState reports where the account is in the TOTP enrollment flow.
func (a *Account) TwoFactorState() TwoFactorState {
	switch {
	case a.TOTPEnabled:
		return TwoFactorEnabled
	case a.TOTPSecret != "":
		return TwoFactorPending
	default:
		return TwoFactorDisabled
	}
}

// Available is the spendable amount: balance minus cumulative usage.
// It may be negative for free-tier accounts admitted on allowance.
func (a *Account) Available() decimal.Decimal {
	return a.Balance.Sub(a.Used)
}
