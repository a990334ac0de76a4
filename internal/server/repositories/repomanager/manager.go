// Package repomanager wires the repository implementations of one storage
// backend together and owns the backend's lifecycle.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/any2json/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/any2json/internal/server/repositories/addresses"
)

type RepositoryManager interface {
	Accounts() accounts.Repository
	Addresses() addresses.Repository
	// RunMigrations prepares the schema; a no-op for schemaless backends.
	RunMigrations(ctx context.Context) error
	Close() error
}
