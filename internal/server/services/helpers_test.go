package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/auth"
	"github.com/dmitrijs2005/any2json/internal/server/convert"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/addresses"
	"github.com/dmitrijs2005/any2json/internal/server/twofactor"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

var errDBDown = errors.New("db down")

// brokenAccounts fails every call, standing in for an unreachable database.
type brokenAccounts struct{ accounts.Repository }

func (brokenAccounts) GetByID(context.Context, string) (*models.Account, error) { return nil, errDBDown }
func (brokenAccounts) GetByEmail(context.Context, string) (*models.Account, error) {
	return nil, errDBDown
}
func (brokenAccounts) Create(context.Context, *models.Account) (*models.Account, error) {
	return nil, errDBDown
}

type failingEngine struct{}

func (failingEngine) Convert(context.Context, convert.Request) (*convert.Result, error) {
	return nil, errors.New("vision backend timeout")
}

type testEnv struct {
	gw        *Gateway
	accounts  *accounts.MemoryRepository
	addresses *addresses.MemoryRepository
	tokens    *auth.TokenService
}

type envOption func(*GatewayDeps)

func withBilling(p BillingPolicy) envOption { return func(d *GatewayDeps) { d.Billing = p } }
func withEngine(e convert.Engine) envOption { return func(d *GatewayDeps) { d.Engine = e } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	log := logging.Nop{}
	acctRepo := accounts.NewMemoryRepository()
	addrRepo := addresses.NewMemoryRepository()

	tokens, err := auth.NewTokenService([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	deps := GatewayDeps{
		Accounts:  NewAccountService(acctRepo, log),
		Addresses: NewAddressService(addrRepo, acctRepo, nil, log),
		Tokens:    tokens,
		TwoFactor: twofactor.NewService(acctRepo, twofactor.Options{Skew: 1, Guard: twofactor.NewMemoryGuard()}, log),
		Engine:    convert.NewMockEngine(),
		Billing:   DefaultBillingPolicy(),
	}
	for _, o := range opts {
		o(&deps)
	}

	return &testEnv{
		gw:        NewGateway(deps, log),
		accounts:  acctRepo,
		addresses: addrRepo,
		tokens:    tokens,
	}
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}
