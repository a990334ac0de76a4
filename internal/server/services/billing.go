package services

import (
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/shopspring/decimal"
)

var DefaultRequestCost = decimal.RequireFromString("0.01")

// BillingPolicy decides whether an account may run a metered request.
//
// Paid accounts need balance-used >= Cost. Free accounts may additionally
// overdraw by FreeAllowance, or without limit when FreeUnlimited is set.
type BillingPolicy struct {
	Cost          decimal.Decimal
	FreeAllowance decimal.Decimal
	FreeUnlimited bool
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{Cost: DefaultRequestCost, FreeUnlimited: true}
}

// Overdraft reports how far below zero acct may go. limited is false for
// free accounts under FreeUnlimited, which are never refused.
func (p BillingPolicy) Overdraft(acct *models.Account) (overdraft decimal.Decimal, limited bool) {
	if acct.Tier == models.TierFree {
		if p.FreeUnlimited {
			return decimal.Zero, false
		}
		return p.FreeAllowance, true
	}
	return decimal.Zero, true
}

// Admit returns common.ErrInsufficientBalance when acct cannot pay for one request.
func (p BillingPolicy) Admit(acct *models.Account) error {
	overdraft, limited := p.Overdraft(acct)
	if !limited {
		return nil
	}
	available := acct.Available().Add(overdraft)
	if available.LessThan(p.Cost) {
		return fmt.Errorf("%w: %s available, %s required", common.ErrInsufficientBalance, available.StringFixed(2), p.Cost.String())
	}
	return nil
}
