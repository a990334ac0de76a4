package repomanager

import (
	"context"

	"github.com/dmitrijs2005/any2json/internal/server/kv"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/addresses"
)

// PebbleRepositoryManager stores all repositories in one embedded Pebble database.
type PebbleRepositoryManager struct {
	db        *kv.Store
	accounts  *accounts.PebbleRepository
	addresses *addresses.PebbleRepository
}

// OpenPebble opens the database directory at path, creating it if needed.
func OpenPebble(path string) (*PebbleRepositoryManager, error) {
	db, err := kv.Open(path)
	if err != nil {
		return nil, err
	}
	return NewPebbleRepositoryManager(db), nil
}

func NewPebbleRepositoryManager(db *kv.Store) *PebbleRepositoryManager {
	return &PebbleRepositoryManager{
		db:        db,
		accounts:  accounts.NewPebbleRepository(db),
		addresses: addresses.NewPebbleRepository(db),
	}
}

func (m *PebbleRepositoryManager) Accounts() accounts.Repository { return m.accounts }

func (m *PebbleRepositoryManager) Addresses() addresses.Repository { return m.addresses }

func (m *PebbleRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *PebbleRepositoryManager) Close() error { return m.db.Close() }
