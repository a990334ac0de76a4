package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/server/poolsource"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/addresses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAddressService(t *testing.T) (*AddressService, *models.Account) {
	t.Helper()
	acctRepo := accounts.NewMemoryRepository()
	acct, err := acctRepo.Create(context.Background(), &models.Account{ID: "acct-x", Email: "x@example.com", APIKey: "a2j_x", Tier: models.TierFree})
	require.NoError(t, err)
	return NewAddressService(addresses.NewMemoryRepository(), acctRepo, nil, logging.Nop{}), acct
}

func TestAddressService_Networks(t *testing.T) {
	s, _ := newAddressService(t)
	assert.Equal(t, models.DefaultNetworks(), s.Networks())

	n, err := s.Network(" TRC20 ")
	require.NoError(t, err)
	assert.Equal(t, "USDT (TRC-20)", n.Name)

	_, err = s.Network("btc")
	assert.ErrorIs(t, err, common.ErrUnsupportedNetwork)
}

func TestAddressService_ConfiguredCodesAreNormalized(t *testing.T) {
	acctRepo := accounts.NewMemoryRepository()
	_, err := acctRepo.Create(context.Background(), &models.Account{ID: "acct-x", Email: "x@example.com", APIKey: "a2j_x", Tier: models.TierFree})
	require.NoError(t, err)
	s := NewAddressService(addresses.NewMemoryRepository(), acctRepo,
		[]models.Network{{Code: " TRC20 ", Name: "USDT (TRC-20)"}, {Code: "trc20", Name: "shadowed"}}, logging.Nop{})

	assert.Equal(t, []models.Network{{Code: "trc20", Name: "USDT (TRC-20)"}}, s.Networks())

	n, err := s.Network("TRC20")
	require.NoError(t, err)
	assert.Equal(t, "trc20", n.Code)

	ctx := context.Background()
	require.NoError(t, s.SeedPools(ctx, &poolsource.Seed{Pools: []poolsource.Pool{{Network: "TRC20", Addresses: []string{"T1"}}}}))
	a, err := s.RequestAddress(ctx, "acct-x", "trc20")
	require.NoError(t, err)
	assert.Equal(t, "T1", a.Address)
}

func TestAddressService_RequestAddress(t *testing.T) {
	s, acct := newAddressService(t)
	ctx := context.Background()

	_, err := s.RequestAddress(ctx, acct.ID, "trc20")
	assert.ErrorIs(t, err, common.ErrPoolExhausted)

	added, size, err := s.LoadPool(ctx, "trc20", []string{"T1", " ", "T2"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, size)

	a1, err := s.RequestAddress(ctx, acct.ID, "trc20")
	require.NoError(t, err)
	a2, err := s.RequestAddress(ctx, acct.ID, "TRC20")
	require.NoError(t, err)
	assert.Equal(t, a1.Address, a2.Address)

	_, err = s.RequestAddress(ctx, "ghost", "trc20")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.RequestAddress(ctx, acct.ID, "doge")
	assert.ErrorIs(t, err, common.ErrUnsupportedNetwork)

	owner, err := s.Owner(ctx, "trc20", a1.Address)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, owner.AccountID)
}

func TestAddressService_SeedPools(t *testing.T) {
	s, _ := newAddressService(t)
	ctx := context.Background()

	err := s.SeedPools(ctx, &poolsource.Seed{Pools: []poolsource.Pool{
		{Network: "erc20", Addresses: []string{"0x1", "0x2"}},
		{Network: "solana", Addresses: []string{"S1"}},
	}})
	require.NoError(t, err)

	_, size, err := s.LoadPool(ctx, "erc20", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}
