package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/logging"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/server/poolsource"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/addresses"
)

// AddressService hands out payment addresses on the configured networks.
type AddressService struct {
	repo     addresses.Repository
	accounts accounts.Repository
	networks []models.Network
	byCode   map[string]models.Network
	log      logging.Logger
}

func NewAddressService(repo addresses.Repository, accts accounts.Repository, networks []models.Network, log logging.Logger) *AddressService {
	if len(networks) == 0 {
		networks = models.DefaultNetworks()
	}
	// codes are kept normalized; the first of any duplicates wins
	normalized := make([]models.Network, 0, len(networks))
	byCode := make(map[string]models.Network, len(networks))
	for _, n := range networks {
		n.Code = models.NormalizeNetworkCode(n.Code)
		if _, dup := byCode[n.Code]; dup || n.Code == "" {
			continue
		}
		byCode[n.Code] = n
		normalized = append(normalized, n)
	}
	return &AddressService{
		repo:     repo,
		accounts: accts,
		networks: normalized,
		byCode:   byCode,
		log:      log.With("module", "addresses"),
	}
}

// Networks lists the supported networks in configuration order.
func (s *AddressService) Networks() []models.Network {
	out := make([]models.Network, len(s.networks))
	copy(out, s.networks)
	return out
}

// Network resolves a network code, case-insensitively.
func (s *AddressService) Network(code string) (models.Network, error) {
	n, ok := s.byCode[models.NormalizeNetworkCode(code)]
	if !ok {
		return models.Network{}, fmt.Errorf("%w: %q", common.ErrUnsupportedNetwork, code)
	}
	return n, nil
}

// RequestAddress returns the account's address on network, allocating one
// from the pool on first use.
func (s *AddressService) RequestAddress(ctx context.Context, accountID, network string) (*models.Allocation, error) {
	n, err := s.Network(network)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, storeErr(err)
	}

	a, err := s.repo.Allocate(ctx, accountID, n.Code)
	if err != nil {
		if errors.Is(err, common.ErrPoolExhausted) {
			s.log.Warn(ctx, "address pool exhausted", "network", n.Code)
		}
		return nil, storeErr(err)
	}

	s.log.Debug(ctx, "address allocated", "network", n.Code, "account_id", accountID)
	return a, nil
}

// LoadPool appends unseen addresses to a network pool and reports how many
// were added and the resulting pool size.
func (s *AddressService) LoadPool(ctx context.Context, network string, addrs []string) (added, size int, err error) {
	n, err := s.Network(network)
	if err != nil {
		return 0, 0, err
	}

	cleaned := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}

	added, err = s.repo.AddToPool(ctx, n.Code, cleaned)
	if err != nil {
		return 0, 0, storeErr(err)
	}
	size, err = s.repo.PoolSize(ctx, n.Code)
	if err != nil {
		return 0, 0, storeErr(err)
	}

	s.log.Info(ctx, "address pool loaded", "network", n.Code, "added", added, "pool_size", size)
	return added, size, nil
}

// SeedPools loads every pool of a seed document. Pools for networks that are
// not configured are skipped with a warning.
func (s *AddressService) SeedPools(ctx context.Context, seed *poolsource.Seed) error {
	for _, p := range seed.Pools {
		if _, _, err := s.LoadPool(ctx, p.Network, p.Addresses); err != nil {
			if errors.Is(err, common.ErrUnsupportedNetwork) {
				s.log.Warn(ctx, "skipping seed pool for unsupported network", "network", p.Network)
				continue
			}
			return err
		}
	}
	return nil
}

// Owner resolves an allocated address to its allocation.
func (s *AddressService) Owner(ctx context.Context, network, address string) (*models.Allocation, error) {
	n, err := s.Network(network)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Owner(ctx, n.Code, strings.TrimSpace(address))
	return a, storeErr(err)
}
