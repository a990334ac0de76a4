package addresses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/dbx"
	"github.com/dmitrijs2005/any2json/internal/server/models"
)

type PostgresRepository struct {
	db dbx.Conn
}

func NewPostgresRepository(db dbx.Conn) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// lockNetwork takes a transaction-scoped advisory lock keyed by the network,
// serializing pool mutations per network only.
func lockNetwork(ctx context.Context, tx dbx.DBTX, network string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, network); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Allocate(ctx context.Context, accountID, network string) (*models.Allocation, error) {
	existing, err := find(ctx, r.db, accountID, network)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	var out *models.Allocation
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockNetwork(ctx, tx, network); err != nil {
			return err
		}

		// a concurrent request for the same pair may have won the lock first
		a, err := find(ctx, tx, accountID, network)
		if err == nil {
			out = a
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		query :=
			`DELETE FROM address_pool
			 WHERE id = (SELECT id FROM address_pool WHERE network = $1 ORDER BY id LIMIT 1)
			 RETURNING address
			 `
		var address string
		if err := tx.QueryRowContext(ctx, query, network).Scan(&address); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrPoolExhausted
			}
			return fmt.Errorf("db error: %w", err)
		}

		a = &models.Allocation{AccountID: accountID, Network: network, Address: address}
		query =
			`INSERT INTO address_allocations (account_id, network, address)
			 VALUES ($1, $2, $3)
			 RETURNING allocated_at
			 `
		if err := tx.QueryRowContext(ctx, query, accountID, network, address).Scan(&a.AllocatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Find(ctx context.Context, accountID, network string) (*models.Allocation, error) {
	return find(ctx, r.db, accountID, network)
}

func find(ctx context.Context, db dbx.DBTX, accountID, network string) (*models.Allocation, error) {
	query :=
		`SELECT account_id, network, address, allocated_at FROM address_allocations
		 WHERE account_id = $1 AND network = $2
		 `
	return scanAllocation(db.QueryRowContext(ctx, query, accountID, network))
}

func (r *PostgresRepository) Owner(ctx context.Context, network, address string) (*models.Allocation, error) {
	query :=
		`SELECT account_id, network, address, allocated_at FROM address_allocations
		 WHERE network = $1 AND address = $2
		 `
	return scanAllocation(r.db.QueryRowContext(ctx, query, network, address))
}

func scanAllocation(row *sql.Row) (*models.Allocation, error) {
	a := &models.Allocation{}
	if err := row.Scan(&a.AccountID, &a.Network, &a.Address, &a.AllocatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) AddToPool(ctx context.Context, network string, addresses []string) (int, error) {
	added := 0
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockNetwork(ctx, tx, network); err != nil {
			return err
		}

		query :=
			`INSERT INTO address_pool (network, address)
			 SELECT $1, $2
			 WHERE NOT EXISTS (SELECT 1 FROM address_allocations WHERE network = $1 AND address = $2)
			 ON CONFLICT (network, address) DO NOTHING
			 `
		for _, address := range addresses {
			res, err := tx.ExecContext(ctx, query, network, address)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (r *PostgresRepository) PoolSize(ctx context.Context, network string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM address_pool WHERE network = $1`, network).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
