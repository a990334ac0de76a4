// Package accounts stores account records: credentials, API keys, TOTP
// enrollment and the balance/usage counters.
package accounts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/shopspring/decimal"
)

// Repository is implemented by every account store.
//
// Lookups return common.ErrorNotFound for unknown accounts, Create returns
// common.ErrorAlreadyExists when the email (or API key) is taken, and the
// TOTP setters keep the invariant that an enabled account has a secret.
type Repository interface {
	Create(ctx context.Context, acct *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	SetAPIKey(ctx context.Context, id, apiKey string) error
	// SetTOTPSecret stores a new secret and resets enrollment to pending.
	// An empty secret clears enrollment entirely.
	SetTOTPSecret(ctx context.Context, id, secret string) error
	SetTOTPEnabled(ctx context.Context, id string, enabled bool) error

	// RecordUsage atomically adds amount to the usage counter and returns
	// the new total.
	RecordUsage(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
	// ChargeUsage adds amount to the usage counter only if
	// balance - used + overdraft >= amount still holds at write time, and
	// returns the new total. Otherwise it fails with
	// common.ErrInsufficientBalance and changes nothing.
	ChargeUsage(ctx context.Context, id string, amount, overdraft decimal.Decimal) (decimal.Decimal, error)
	// Credit atomically adds amount to the balance and returns the new balance.
	Credit(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
}

// chargeable is the ChargeUsage guard shared by the embedded stores; callers
// hold the account lock.
func chargeable(a *models.Account, amount, overdraft decimal.Decimal) error {
	available := a.Available().Add(overdraft)
	if available.LessThan(amount) {
		return fmt.Errorf("%w: %s available, %s required", common.ErrInsufficientBalance, available.StringFixed(2), amount.String())
	}
	return nil
}
