package addresses

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/models"
)

type networkPool struct {
	mu        sync.Mutex
	queue     []string
	pooled    map[string]struct{}
	byAccount map[string]models.Allocation
	byAddress map[string]models.Allocation
}

func newNetworkPool() *networkPool {
	return &networkPool{
		pooled:    make(map[string]struct{}),
		byAccount: make(map[string]models.Allocation),
		byAddress: make(map[string]models.Allocation),
	}
}

// MemoryRepository keeps pools and allocations in process memory with one
// mutex per network.
type MemoryRepository struct {
	mu    sync.Mutex
	pools map[string]*networkPool
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{pools: make(map[string]*networkPool), now: time.Now}
}

func (r *MemoryRepository) pool(network string) *networkPool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[network]
	if !ok {
		p = newNetworkPool()
		r.pools[network] = p
	}
	return p
}

func (r *MemoryRepository) Allocate(_ context.Context, accountID, network string) (*models.Allocation, error) {
	p := r.pool(network)
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.byAccount[accountID]; ok {
		return &a, nil
	}
	if len(p.queue) == 0 {
		return nil, common.ErrPoolExhausted
	}

	address := p.queue[0]
	p.queue[0] = ""
	p.queue = p.queue[1:]
	delete(p.pooled, address)

	a := models.Allocation{AccountID: accountID, Network: network, Address: address, AllocatedAt: r.now().UTC()}
	p.byAccount[accountID] = a
	p.byAddress[address] = a
	return &a, nil
}

func (r *MemoryRepository) Find(_ context.Context, accountID, network string) (*models.Allocation, error) {
	p := r.pool(network)
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.byAccount[accountID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) Owner(_ context.Context, network, address string) (*models.Allocation, error) {
	p := r.pool(network)
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.byAddress[address]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) AddToPool(_ context.Context, network string, addresses []string) (int, error) {
	p := r.pool(network)
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, address := range addresses {
		if _, ok := p.pooled[address]; ok {
			continue
		}
		if _, ok := p.byAddress[address]; ok {
			continue
		}
		p.pooled[address] = struct{}{}
		p.queue = append(p.queue, address)
		added++
	}
	return added, nil
}

func (r *MemoryRepository) PoolSize(_ context.Context, network string) (int, error) {
	p := r.pool(network)
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue), nil
}
