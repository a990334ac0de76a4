package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/auth"
	"github.com/dmitrijs2005/any2json/internal/server/convert"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/server/twofactor"
	"github.com/shopspring/decimal"
)

// Session is what a client keeps after registering or logging in.
type Session struct {
	AccountID string
	Token     string
	ExpiresAt time.Time
	APIKey    string
}

// LoginResult carries either a session or the signal that a TOTP code is
// needed to finish logging in.
type LoginResult struct {
	Session     *Session
	Requires2FA bool
}

type BalanceView struct {
	Balance decimal.Decimal
	Used    decimal.Decimal
	Tier    models.Tier
}

type AddressView struct {
	Address     string
	Network     string
	NetworkName string
}

type PaymentResult struct {
	AccountID string
	Balance   decimal.Decimal
}

// Gateway composes accounts, tokens, two-factor, addresses, billing and the
// conversion engine into the operations exposed over the API.
type Gateway struct {
	accounts  *AccountService
	addresses *AddressService
	tokens    *auth.TokenService
	twofactor *twofactor.Service
	engine    convert.Engine
	billing   BillingPolicy
	log       logging.Logger
}

type GatewayDeps struct {
	Accounts  *AccountService
	Addresses *AddressService
	Tokens    *auth.TokenService
	TwoFactor *twofactor.Service
	Engine    convert.Engine
	Billing   BillingPolicy
}

func NewGateway(d GatewayDeps, log logging.Logger) *Gateway {
	return &Gateway{
		accounts:  d.Accounts,
		addresses: d.Addresses,
		tokens:    d.Tokens,
		twofactor: d.TwoFactor,
		engine:    d.Engine,
		billing:   d.Billing,
		log:       log.With("module", "gateway"),
	}
}

func (g *Gateway) issue(acct *models.Account) (*Session, error) {
	token, exp, err := g.tokens.Issue(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}
	return &Session{AccountID: acct.ID, Token: token, ExpiresAt: exp, APIKey: acct.APIKey}, nil
}

func (g *Gateway) Register(ctx context.Context, email, password string) (*Session, error) {
	acct, err := g.accounts.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return g.issue(acct)
}

// Login checks the password and, for accounts with 2FA enabled, the TOTP
// code. Without a code such accounts get Requires2FA and no token.
func (g *Gateway) Login(ctx context.Context, email, password, code string) (*LoginResult, error) {
	acct, err := g.accounts.CheckPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			g.log.Info(ctx, "login rejected")
		}
		return nil, err
	}

	if acct.TOTPEnabled {
		if code == "" {
			return &LoginResult{Requires2FA: true}, nil
		}
		if err := g.twofactor.VerifyLogin(ctx, acct, code); err != nil {
			return nil, storeErr2FA(err)
		}
	}

	s, err := g.issue(acct)
	if err != nil {
		return nil, err
	}
	g.log.Info(ctx, "login succeeded", "account_id", acct.ID)
	return &LoginResult{Session: s}, nil
}

// Authenticate resolves a bearer token to a live account.
func (g *Gateway) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	id, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	acct, err := g.accounts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return acct, nil
}

func (g *Gateway) Balance(ctx context.Context, accountID string) (*BalanceView, error) {
	acct, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceView{Balance: acct.Balance, Used: acct.Used, Tier: acct.Tier}, nil
}

func (g *Gateway) RotateAPIKey(ctx context.Context, accountID string) (string, error) {
	return g.accounts.RotateAPIKey(ctx, accountID)
}

func (g *Gateway) SetupTwoFactor(ctx context.Context, accountID string) (*twofactor.Enrollment, error) {
	acct, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	e, err := g.twofactor.BeginEnrollment(ctx, acct)
	return e, storeErr2FA(err)
}

func (g *Gateway) ConfirmTwoFactor(ctx context.Context, accountID, code string) (bool, error) {
	acct, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	ok, err := g.twofactor.ConfirmEnrollment(ctx, acct, code)
	return ok, storeErr2FA(err)
}

func (g *Gateway) DisableTwoFactor(ctx context.Context, accountID, code string) error {
	acct, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	return storeErr2FA(g.twofactor.Disable(ctx, acct, code))
}

func (g *Gateway) Networks() []models.Network {
	return g.addresses.Networks()
}

func (g *Gateway) RequestAddress(ctx context.Context, accountID, network string) (*AddressView, error) {
	a, err := g.addresses.RequestAddress(ctx, accountID, network)
	if err != nil {
		return nil, err
	}
	n, err := g.addresses.Network(a.Network)
	if err != nil {
		return nil, err
	}
	return &AddressView{Address: a.Address, Network: n.Code, NetworkName: n.Name}, nil
}

// Convert admits the request under the billing policy, runs the engine and
// records usage only when the engine succeeded. Admit only rejects early on a
// snapshot; the charge re-checks the balance atomically.
func (g *Gateway) Convert(ctx context.Context, accountID string, req convert.Request) (*convert.Result, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	acct, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := g.billing.Admit(acct); err != nil {
		return nil, err
	}

	res, err := g.engine.Convert(ctx, req)
	if err != nil {
		g.log.Error(ctx, "conversion failed", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrConversion, err)
	}

	overdraft, limited := g.billing.Overdraft(acct)
	if limited {
		_, err = g.accounts.ChargeUsage(ctx, accountID, g.billing.Cost, overdraft)
	} else {
		_, err = g.accounts.RecordUsage(ctx, accountID, g.billing.Cost)
	}
	if err != nil {
		if errors.Is(err, common.ErrInsufficientBalance) {
			g.log.Info(ctx, "conversion discarded, balance spent concurrently", "account_id", accountID)
		}
		return nil, err
	}
	return res, nil
}

// LoadPool is the admin operation that tops up a network pool.
func (g *Gateway) LoadPool(ctx context.Context, network string, addrs []string) (added, size int, err error) {
	return g.addresses.LoadPool(ctx, network, addrs)
}

// CreditPayment applies a confirmed deposit on an allocated address to the
// owning account's balance.
func (g *Gateway) CreditPayment(ctx context.Context, network, address string, amount decimal.Decimal) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", common.ErrorValidation)
	}

	owner, err := g.addresses.Owner(ctx, network, address)
	if err != nil {
		return nil, err
	}
	balance, err := g.accounts.Credit(ctx, owner.AccountID, amount)
	if err != nil {
		return nil, err
	}

	g.log.Info(ctx, "payment credited", "account_id", owner.AccountID, "network", owner.Network, "amount", amount.String())
	return &PaymentResult{AccountID: owner.AccountID, Balance: balance}, nil
}

// storeErr2FA leaves two-factor outcomes intact and classifies store failures.
func storeErr2FA(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range []error{common.ErrInvalid2FA, common.ErrNotEnrolled, common.ErrAlreadyEnrolled} {
		if errors.Is(err, e) {
			return err
		}
	}
	return storeErr(err)
}
