// Package addresses manages per-network pools of payment addresses and the
// allocations that bind one address to one (account, network) pair.
package addresses

import (
	"context"

	"github.com/dmitrijs2005/any2json/internal/server/models"
)

// Repository is implemented by every address store.
//
// Pools are FIFO per network. Allocate pops one entry and records the
// allocation atomically with respect to other allocations on the same network;
// networks are independent of each other.
type Repository interface {
	// Allocate returns the existing allocation for the pair or assigns the
	// oldest pooled address. It fails with common.ErrPoolExhausted, recording
	// nothing, when the pool is empty.
	Allocate(ctx context.Context, accountID, network string) (*models.Allocation, error)
	// Find returns the allocation for the pair or common.ErrorNotFound.
	Find(ctx context.Context, accountID, network string) (*models.Allocation, error)
	// Owner resolves an allocated address back to its allocation.
	Owner(ctx context.Context, network, address string) (*models.Allocation, error)
	// AddToPool appends addresses that are neither pooled nor allocated and
	// reports how many were added.
	AddToPool(ctx context.Context, network string, addresses []string) (int, error)
	PoolSize(ctx context.Context, network string) (int, error)
}
