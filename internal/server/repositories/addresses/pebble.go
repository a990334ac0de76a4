package addresses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/dmitrijs2005/any2json/internal/server/kv"
	"github.com/dmitrijs2005/any2json/internal/server/models"
)

// Key layout (network codes, account ids and addresses never contain ':'):
//
//	pool:<net>:<seq>       pooled address, seq zero-padded for FIFO order
//	poolidx:<net>:<addr>   pool key of a pooled address
//	alloc:<net>:<account>  JSON allocation
//	owner:<net>:<addr>     JSON allocation
//	seq:<net>              last pool sequence number
const (
	prefixPool      = "pool:"
	prefixPoolIndex = "poolidx:"
	prefixAlloc     = "alloc:"
	prefixOwner     = "owner:"
	prefixSeq       = "seq:"
)

func poolPrefix(network string) []byte { return []byte(prefixPool + network + ":") }

func poolKey(network string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixPool, network, seq))
}

func key(prefix, network, id string) []byte { return []byte(prefix + network + ":" + id) }

// PebbleRepository persists pools and allocations in an embedded Pebble database.
type PebbleRepository struct {
	db    *kv.Store
	locks kv.KeyedMutex
	now   func() time.Time
}

func NewPebbleRepository(db *kv.Store) *PebbleRepository {
	return &PebbleRepository{db: db, now: time.Now}
}

func (r *PebbleRepository) Allocate(_ context.Context, accountID, network string) (*models.Allocation, error) {
	unlock := r.locks.Lock(network)
	defer unlock()

	existing, err := r.get(key(prefixAlloc, network, accountID))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	poolK, address, ok, err := r.db.First(poolPrefix(network))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return nil, common.ErrPoolExhausted
	}

	a := &models.Allocation{AccountID: accountID, Network: network, Address: string(address), AllocatedAt: r.now().UTC()}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	b := r.db.NewBatch()
	for _, op := range []func() error{
		func() error { return b.Delete(poolK) },
		func() error { return b.Delete(key(prefixPoolIndex, network, a.Address)) },
		func() error { return b.Set(key(prefixAlloc, network, accountID), data) },
		func() error { return b.Set(key(prefixOwner, network, a.Address), data) },
	} {
		if err := op(); err != nil {
			b.Discard()
			return nil, err
		}
	}
	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PebbleRepository) Find(_ context.Context, accountID, network string) (*models.Allocation, error) {
	return r.get(key(prefixAlloc, network, accountID))
}

func (r *PebbleRepository) Owner(_ context.Context, network, address string) (*models.Allocation, error) {
	return r.get(key(prefixOwner, network, address))
}

func (r *PebbleRepository) get(k []byte) (*models.Allocation, error) {
	data, err := r.db.Get(k)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if data == nil {
		return nil, common.ErrorNotFound
	}
	a := &models.Allocation{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("corrupt allocation %s: %w", k, err)
	}
	return a, nil
}

func (r *PebbleRepository) AddToPool(_ context.Context, network string, addresses []string) (int, error) {
	unlock := r.locks.Lock(network)
	defer unlock()

	seq, err := r.lastSeq(network)
	if err != nil {
		return 0, err
	}

	b := r.db.NewBatch()
	seen := make(map[string]struct{}, len(addresses))
	added := 0
	for _, address := range addresses {
		if _, dup := seen[address]; dup {
			continue
		}
		seen[address] = struct{}{}

		known, err := r.known(network, address)
		if err != nil {
			b.Discard()
			return 0, err
		}
		if known {
			continue
		}

		seq++
		pk := poolKey(network, seq)
		if err := b.Set(pk, []byte(address)); err != nil {
			b.Discard()
			return 0, err
		}
		if err := b.Set(key(prefixPoolIndex, network, address), pk); err != nil {
			b.Discard()
			return 0, err
		}
		added++
	}

	if added == 0 {
		b.Discard()
		return 0, nil
	}
	if err := b.Set([]byte(prefixSeq+network), []byte(strconv.FormatUint(seq, 10))); err != nil {
		b.Discard()
		return 0, err
	}
	if err := b.Commit(); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return added, nil
}

// known reports whether address is pooled or was ever allocated on network.
func (r *PebbleRepository) known(network, address string) (bool, error) {
	for _, prefix := range []string{prefixPoolIndex, prefixOwner} {
		v, err := r.db.Get(key(prefix, network, address))
		if err != nil {
			return false, fmt.Errorf("db error: %w", err)
		}
		if v != nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *PebbleRepository) lastSeq(network string) (uint64, error) {
	v, err := r.db.Get([]byte(prefixSeq + network))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	if v == nil {
		return 0, nil
	}
	return strconv.ParseUint(string(v), 10, 64)
}

func (r *PebbleRepository) PoolSize(_ context.Context, network string) (int, error) {
	n := 0
	err := r.db.Scan(poolPrefix(network), func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
