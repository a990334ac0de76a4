package repomanager

import (
	"context"

	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/addresses"
)

// MemoryRepositoryManager keeps everything in process memory; state is lost
// on restart. Intended for development and tests.
type MemoryRepositoryManager struct {
	accounts  *accounts.MemoryRepository
	addresses *addresses.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		accounts:  accounts.NewMemoryRepository(),
		addresses: addresses.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Accounts() accounts.Repository { return m.accounts }

func (m *MemoryRepositoryManager) Addresses() addresses.Repository { return m.addresses }

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }
